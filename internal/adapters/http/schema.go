package httpadapter

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// apiSchema describes the public surface so agent callers can discover
// the call shapes without out-of-band documentation.
func apiSchema() *openapi3.T {
	askRequest := openapi3.NewObjectSchema().
		WithProperty("question", openapi3.NewStringSchema()).
		WithProperty("strategy", openapi3.NewStringSchema()).
		WithProperty("beam", openapi3.NewIntegerSchema().WithMin(1).WithMax(4)).
		WithProperty("return_trace", openapi3.NewBoolSchema()).
		WithProperty("citations_max", openapi3.NewIntegerSchema()).
		WithProperty("chunk_text_max", openapi3.NewIntegerSchema())
	askRequest.Required = []string{"question"}

	limitsSchema := openapi3.NewObjectSchema().
		WithProperty("l0", openapi3.NewIntegerSchema()).
		WithProperty("l1", openapi3.NewIntegerSchema()).
		WithProperty("l2", openapi3.NewIntegerSchema()).
		WithProperty("l3", openapi3.NewIntegerSchema()).
		WithProperty("chunk_text_max", openapi3.NewIntegerSchema())

	bundleRequest := openapi3.NewObjectSchema().
		WithProperty("topic", openapi3.NewStringSchema()).
		WithPropertyRef("limits", openapi3.NewSchemaRef("", limitsSchema))
	bundleRequest.Required = []string{"topic"}

	paths := openapi3.NewPaths(
		openapi3.WithPath("/v1/ask", &openapi3.PathItem{
			Post: &openapi3.Operation{
				OperationID: "ask",
				Summary:     "Answer a question from layered evidence with citations and confidence.",
				RequestBody: &openapi3.RequestBodyRef{
					Value: openapi3.NewRequestBody().WithJSONSchema(askRequest).WithRequired(true),
				},
				Responses: jsonResponses("Answer pack with citations, meta and optional trace."),
			},
		}),
		openapi3.WithPath("/v1/bundle", &openapi3.PathItem{
			Post: &openapi3.Operation{
				OperationID: "bundle",
				Summary:     "Retrieve a layered evidence bundle for a topic.",
				RequestBody: &openapi3.RequestBodyRef{
					Value: openapi3.NewRequestBody().WithJSONSchema(bundleRequest).WithRequired(true),
				},
				Responses: jsonResponses("Layered bundle: subjects, documents, graph nodes, chunks."),
			},
		}),
		openapi3.WithPath("/v1/hint", &openapi3.PathItem{
			Get: &openapi3.Operation{
				OperationID: "hint",
				Summary:     "Describe store capabilities, coverage and recommended call shapes.",
				Parameters: openapi3.Parameters{
					{Value: openapi3.NewQueryParameter("question").WithSchema(openapi3.NewStringSchema())},
					{Value: openapi3.NewQueryParameter("doc_pattern").WithSchema(openapi3.NewStringSchema())},
				},
				Responses: jsonResponses("Hints envelope."),
			},
		}),
		openapi3.WithPath("/v1/admin/reembed", &openapi3.PathItem{
			Post: &openapi3.Operation{
				OperationID: "reembed",
				Summary:     "Queue a re-embedding job for chunks without stored vectors.",
				Responses:   jsonResponses("Accepted job id."),
			},
		}),
		openapi3.WithPath("/healthz", &openapi3.PathItem{
			Get: &openapi3.Operation{
				OperationID: "healthz",
				Summary:     "Liveness probe.",
				Responses:   jsonResponses("Service status."),
			},
		}),
	)

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "Instant SME API",
			Version: "1.0.0",
		},
		Paths: paths,
	}
}

func jsonResponses(description string) *openapi3.Responses {
	return openapi3.NewResponses(
		openapi3.WithStatus(200, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription(description).
				WithContent(openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema())),
		}),
	)
}
