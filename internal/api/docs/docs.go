// Package docs registers the admin API's Swagger spec with swaggo so
// gin-swagger can serve it at /swagger/*any. The spec template below is
// kept hand-maintained in lockstep with the @Summary/@Router annotations
// in internal/api/handlers rather than regenerated by `swag init`, since
// the build pipeline here doesn't run go generate.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "contact": {
            "name": "Portal Gateway",
            "url": "https://github.com/walportal/gateway"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "tags": ["system"],
                "summary": "Health check",
                "responses": { "200": { "description": "OK" } }
            }
        },
        "/stats": {
            "get": {
                "tags": ["system"],
                "summary": "Server statistics",
                "security": [{"ApiKeyAuth": []}],
                "responses": { "200": { "description": "OK" } }
            }
        },
        "/config": {
            "get": {
                "tags": ["config"],
                "summary": "Get current configuration",
                "security": [{"ApiKeyAuth": []}],
                "responses": { "200": { "description": "OK" } }
            },
            "put": {
                "tags": ["config"],
                "summary": "Update configuration",
                "security": [{"ApiKeyAuth": []}],
                "responses": { "501": { "description": "Not Implemented" } }
            }
        },
        "/config/reload": {
            "post": {
                "tags": ["config"],
                "summary": "Reload configuration",
                "security": [{"ApiKeyAuth": []}],
                "responses": { "501": { "description": "Not Implemented" } }
            }
        },
        "/sites": {
            "get": {
                "tags": ["sites"],
                "summary": "List hardcoded sites",
                "security": [{"ApiKeyAuth": []}],
                "responses": { "200": { "description": "OK" } }
            },
            "post": {
                "tags": ["sites"],
                "summary": "Add or update a site mapping",
                "security": [{"ApiKeyAuth": []}],
                "responses": { "200": { "description": "OK" } }
            }
        },
        "/sites/{subdomain}": {
            "delete": {
                "tags": ["sites"],
                "summary": "Remove a site mapping",
                "security": [{"ApiKeyAuth": []}],
                "parameters": [
                    { "name": "subdomain", "in": "path", "required": true, "type": "string" }
                ],
                "responses": { "200": { "description": "OK" }, "404": { "description": "Not Found" } }
            }
        },
        "/lists/{list}": {
            "get": {
                "tags": ["lists"],
                "summary": "List blocklist or allowlist entries",
                "security": [{"ApiKeyAuth": []}],
                "parameters": [
                    { "name": "list", "in": "path", "required": true, "type": "string" }
                ],
                "responses": { "200": { "description": "OK" } }
            },
            "post": {
                "tags": ["lists"],
                "summary": "Add a blocklist or allowlist entry",
                "security": [{"ApiKeyAuth": []}],
                "parameters": [
                    { "name": "list", "in": "path", "required": true, "type": "string" }
                ],
                "responses": { "200": { "description": "OK" } }
            }
        },
        "/lists/{list}/{value}": {
            "delete": {
                "tags": ["lists"],
                "summary": "Remove a blocklist or allowlist entry",
                "security": [{"ApiKeyAuth": []}],
                "parameters": [
                    { "name": "list", "in": "path", "required": true, "type": "string" },
                    { "name": "value", "in": "path", "required": true, "type": "string" }
                ],
                "responses": { "200": { "description": "OK" }, "404": { "description": "Not Found" } }
            }
        },
        "/lists/{list}/export": {
            "get": {
                "tags": ["lists"],
                "summary": "Export a list in managed-store polling shape",
                "security": [{"ApiKeyAuth": []}],
                "parameters": [
                    { "name": "list", "in": "path", "required": true, "type": "string" }
                ],
                "responses": { "200": { "description": "OK" } }
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "in": "header",
            "name": "X-API-Key"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Portal Gateway Admin API",
	Description:      "Admin REST API for the Portal content gateway: health, stats, site table and list management.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
