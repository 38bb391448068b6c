// Package docs registers the OpenAPI document served at /swagger.
// Regenerate with: swag init -g main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/matches": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Matches"],
                "summary": "Create a match",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "404": {"description": "Team not found"}}
            }
        },
        "/v1/matches/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Matches"],
                "summary": "Match snapshot",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/matches/{id}/toss": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Matches"],
                "summary": "Record the toss and open the first innings",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Invalid transition"}}
            }
        },
        "/v1/matches/{id}/balls": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Deliveries"],
                "summary": "Submit a delivery",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"201": {"description": "Applied"}, "400": {"description": "Structural violation"}, "409": {"description": "Invalid transition"}, "422": {"description": "Rule violation"}}
            }
        },
        "/v1/matches/{id}/undo": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Deliveries"],
                "summary": "Undo the last delivery",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Busy or empty log"}}
            }
        },
        "/v1/matches/{id}/commands": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Commands"],
                "summary": "Score from a spoken phrase",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"201": {"description": "Applied"}, "202": {"description": "Needs confirmation"}, "422": {"description": "Unrecognized"}}
            }
        },
        "/ws": {
            "get": {
                "tags": ["Broadcast"],
                "summary": "Live score stream",
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8088",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Crease live scoring API",
	Description:      "Ball-by-ball cricket scoring with undo, spoken commands and live viewer streams.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
