package handler

import (
	"reflect"
	"sort"

	"github.com/erp/docflow/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
)

var schemaPayloads = map[string]any{
	"create-document": CreateDocumentRequest{},
	"transition":      TransitionRequest{},
	"conversion":      ConversionRequest{},
	"bulk-transition": BulkTransitionRequest{},
	"sweep":           SweepRequest{},
}

var (
	decimalType = reflect.TypeOf(decimal.Decimal{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
)

// SchemaNames lists the request payloads that have a published schema
func SchemaNames() []string {
	names := make([]string, 0, len(schemaPayloads))
	for name := range schemaPayloads {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema returns the JSON Schema of the named request payload
func Schema(name string) (*jsonschema.Schema, error) {
	payload, ok := schemaPayloads[name]
	if !ok {
		return nil, shared.NewNotFoundError("schema", name)
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Mapper:                    mapType,
	}
	return reflector.Reflect(payload), nil
}

func mapType(t reflect.Type) *jsonschema.Schema {
	switch t {
	case decimalType:
		return &jsonschema.Schema{Type: "string", Pattern: `^-?\d+(\.\d+)?$`}
	case uuidType:
		return &jsonschema.Schema{Type: "string", Format: "uuid"}
	}
	return nil
}

// SchemaHandler publishes the request payload schemas
type SchemaHandler struct {
	BaseHandler
}

// NewSchemaHandler creates a new SchemaHandler
func NewSchemaHandler() *SchemaHandler {
	return &SchemaHandler{}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *SchemaHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/schemas", h.List)
	rg.GET("/schemas/:name", h.Get)
}

// List returns the names of the published schemas
func (h *SchemaHandler) List(c *gin.Context) {
	h.Success(c, SchemaNames())
}

// Get returns one schema
func (h *SchemaHandler) Get(c *gin.Context) {
	schema, err := Schema(c.Param("name"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, schema)
}
