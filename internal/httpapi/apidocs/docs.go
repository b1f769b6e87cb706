// Package apidocs registers the OpenAPI document served under /swagger when
// the server is built with -tags=swagger.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/tryon": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "summary": "Generate a try-on image",
                "parameters": [
                    {"type": "file", "name": "person_image", "in": "formData", "required": true},
                    {"type": "file", "name": "garment_image", "in": "formData"},
                    {"type": "string", "name": "garment_url", "in": "formData"},
                    {"type": "string", "name": "generation_type", "in": "formData"},
                    {"type": "string", "name": "prompt", "in": "formData"},
                    {"type": "boolean", "name": "enhance_prompt", "in": "formData"},
                    {"type": "integer", "name": "num_inference_steps", "in": "formData"},
                    {"type": "number", "name": "guidance_scale", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.TryOnResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Unknown variant", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Variant unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too busy", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Pipeline not loaded", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/variants": {
            "get": {
                "produces": ["application/json"],
                "summary": "List generation variants",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.VariantsResponse"}}}
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "summary": "Service status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "code": {"type": "integer"}}
        },
        "types.TryOnResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "success": {"type": "boolean"},
                "result_url": {"type": "string"},
                "variant": {"type": "string"},
                "backend": {"type": "string"},
                "downgraded": {"type": "boolean"},
                "model_type": {"type": "string"},
                "prompt": {"type": "string"},
                "analysis": {"type": "string"},
                "generation_time": {"type": "number"},
                "cost": {"type": "number"}
            }
        },
        "types.VariantsResponse": {
            "type": "object",
            "properties": {"variants": {"type": "array", "items": {"type": "object"}}}
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "state": {"type": "string"},
                "detected_backends": {"type": "array", "items": {"type": "string"}},
                "queue_len": {"type": "integer"},
                "inflight": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "fitroom API",
	Description:      "Backend-adaptive virtual try-on generation service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
