// Package openapi describes the storefront REST API as an OpenAPI 3 document.
package openapi

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-faster/errors"
)

// Path is where the document is served.
const Path = "/api-docs/openapi.json"

func ref(name string, s *openapi3.Schema) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name, Value: s}
}

func productSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("variant", openapi3.NewStringSchema()).
		WithProperty("price", openapi3.NewInt64Schema().WithMin(0)).
		WithProperty("originalPrice", openapi3.NewInt64Schema().WithMin(0)).
		WithProperty("category", openapi3.NewStringSchema()).
		WithProperty("colors", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("rating", openapi3.NewFloat64Schema()).
		WithProperty("reviews", openapi3.NewInt64Schema()).
		WithProperty("isNew", openapi3.NewBoolSchema()).
		WithProperty("badge", openapi3.NewStringSchema()).
		WithProperty("createdAt", openapi3.NewDateTimeSchema()).
		WithProperty("images", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))
	s.Required = []string{"id", "name", "variant", "price", "category", "colors", "rating", "reviews", "isNew", "createdAt", "images"}
	return s
}

func productPatchSchema() *openapi3.Schema {
	s := productSchema()
	delete(s.Properties, "id")
	delete(s.Properties, "createdAt")
	s.Required = nil
	return s
}

func productFormSchema(minImages, maxImages int) *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("variant", openapi3.NewStringSchema()).
		WithProperty("price", openapi3.NewStringSchema().WithPattern(`^[0-9]+$`)).
		WithProperty("originalPrice", openapi3.NewStringSchema().WithPattern(`^[0-9]+$`)).
		WithProperty("category", openapi3.NewStringSchema()).
		WithProperty("colors", openapi3.NewStringSchema()).
		WithProperty("rating", openapi3.NewStringSchema()).
		WithProperty("reviews", openapi3.NewStringSchema()).
		WithProperty("isNew", openapi3.NewStringSchema()).
		WithProperty("badge", openapi3.NewStringSchema()).
		WithProperty("images", openapi3.NewArraySchema().
			WithItems(openapi3.NewStringSchema().WithFormat("binary")).
			WithMinItems(int64(minImages)).
			WithMaxItems(int64(maxImages)))
	s.Required = []string{"name", "variant", "price", "category", "colors", "images"}
	return s
}

func imageFormSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("image", openapi3.NewStringSchema().WithFormat("binary"))
	s.Required = []string{"image"}
	return s
}

func imageSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("filename", openapi3.NewStringSchema()).
		WithProperty("path", openapi3.NewStringSchema()).
		WithProperty("createdAt", openapi3.NewDateTimeSchema()).
		WithProperty("url", openapi3.NewStringSchema())
	s.Required = []string{"id", "filename", "path", "createdAt", "url"}
	return s
}

func errorSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema())
	s.Required = []string{"error", "message"}
	return s
}

// Limits are the upload bounds advertised in the document.
type Limits struct {
	MinImages int
	MaxImages int
}

// Document builds the API description.
func Document(version string, limits Limits) *openapi3.T {
	var (
		product = ref("Product", productSchema())
		patch   = ref("ProductPatch", productPatchSchema())
		image   = ref("Image", imageSchema())
		apiErr  = ref("Error", errorSchema())
	)

	imageEnvelope := openapi3.NewObjectSchema().
		WithProperty("message", openapi3.NewStringSchema()).
		WithPropertyRef("image", image)
	blobErr := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithPropertyRef("image", image)
	blogEnvelope := openapi3.NewObjectSchema().
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("filename", openapi3.NewStringSchema()).
		WithProperty("url", openapi3.NewStringSchema())

	ok := func(desc string, s *openapi3.SchemaRef) *openapi3.Response {
		return openapi3.NewResponse().WithDescription(desc).WithJSONSchemaRef(s)
	}
	fail := func(desc string) *openapi3.Response {
		return ok(desc, apiErr)
	}
	idParam := openapi3.Parameters{
		{Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema())},
	}
	op := func(id, summary, tag string, params openapi3.Parameters) *openapi3.Operation {
		o := openapi3.NewOperation()
		o.OperationID = id
		o.Summary = summary
		o.Tags = []string{tag}
		o.Parameters = params
		return o
	}

	listProducts := op("listProducts", "List all products", "products", nil)
	listProducts.AddResponse(http.StatusOK, ok("Products", openapi3.NewArraySchema().WithItems(product.Value).NewRef()))
	listProducts.AddResponse(http.StatusInternalServerError, fail("Store failure"))

	createProduct := op("createProduct", "Create a product with its images", "products", nil)
	createProduct.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithContent(openapi3.NewContentWithSchema(productFormSchema(limits.MinImages, limits.MaxImages), []string{"multipart/form-data"}))}
	createProduct.AddResponse(http.StatusCreated, ok("Created product", product))
	createProduct.AddResponse(http.StatusBadRequest, fail("Invalid fields or files"))

	getProduct := op("getProduct", "Get a product", "products", idParam)
	getProduct.AddResponse(http.StatusOK, ok("Product", product))
	getProduct.AddResponse(http.StatusNotFound, fail("Unknown product"))

	updateProduct := op("updateProduct", "Partially update a product", "products", idParam)
	updateProduct.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchemaRef(patch)}
	updateProduct.AddResponse(http.StatusOK, ok("Updated product", product))
	updateProduct.AddResponse(http.StatusBadRequest, fail("Malformed body"))
	updateProduct.AddResponse(http.StatusNotFound, fail("Unknown product"))

	deleteProduct := op("deleteProduct", "Delete a product", "products", idParam)
	deleteProduct.AddResponse(http.StatusNoContent, openapi3.NewResponse().WithDescription("Deleted"))
	deleteProduct.AddResponse(http.StatusNotFound, fail("Unknown product"))

	uploadBlog := op("uploadBlogImage", "Upload a blog image", "images", nil)
	uploadBlog.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithContent(openapi3.NewContentWithSchema(imageFormSchema(), []string{"multipart/form-data"}))}
	uploadBlog.AddResponse(http.StatusOK, ok("Stored file", blogEnvelope.NewRef()))
	uploadBlog.AddResponse(http.StatusBadRequest, fail("Invalid file"))

	uploadImage := op("uploadImage", "Upload an image", "images", nil)
	uploadImage.RequestBody = uploadBlog.RequestBody
	uploadImage.AddResponse(http.StatusOK, ok("Stored image", imageEnvelope.NewRef()))
	uploadImage.AddResponse(http.StatusBadRequest, fail("Invalid file"))

	listImages := op("listImages", "List images", "images", nil)
	listImages.AddResponse(http.StatusOK, ok("Images", openapi3.NewArraySchema().WithItems(image.Value).NewRef()))
	listImages.AddResponse(http.StatusInternalServerError, fail("Store failure"))

	deleteImage := op("deleteImage", "Delete an image and its file", "images", idParam)
	deleteImage.AddResponse(http.StatusOK, ok("Deleted image", imageEnvelope.NewRef()))
	deleteImage.AddResponse(http.StatusNotFound, fail("Unknown image"))
	deleteImage.AddResponse(http.StatusInternalServerError, ok("Record deleted but the file was not", blobErr.NewRef()))

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Storefront API",
			Description: "Product catalog and image assets.",
			Version:     version,
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/api/products", &openapi3.PathItem{Get: listProducts, Post: createProduct}),
			openapi3.WithPath("/api/products/{id}", &openapi3.PathItem{Get: getProduct, Put: updateProduct, Delete: deleteProduct}),
			openapi3.WithPath("/api/uploads-blog", &openapi3.PathItem{Post: uploadBlog}),
			openapi3.WithPath("/api/images", &openapi3.PathItem{Get: listImages, Post: uploadImage}),
			openapi3.WithPath("/api/images/{id}", &openapi3.PathItem{Delete: deleteImage}),
		),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"Product":      &openapi3.SchemaRef{Value: product.Value},
				"ProductPatch": &openapi3.SchemaRef{Value: patch.Value},
				"Image":        &openapi3.SchemaRef{Value: image.Value},
				"Error":        &openapi3.SchemaRef{Value: apiErr.Value},
			},
		},
	}
}

// Handler serves doc as JSON. The document is rendered once.
func Handler(doc *openapi3.T) (http.Handler, error) {
	data, err := doc.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "marshal openapi document")
	}
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}), nil
}
