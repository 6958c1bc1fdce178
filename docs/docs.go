// Package docs registers the OpenAPI document served at /api/v1/swagger.json.
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
        "/api/v1/links": {
            "get": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "List Links",
                "parameters": [
                    {"type": "integer", "description": "Team ID", "name": "team_id", "in": "query"},
                    {"type": "integer", "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "403": {"description": "Not a team member", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "description": "Create a short link. Anonymous callers are allowed; custom slugs need a paid plan or a team link.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "Create Short Link",
                "parameters": [
                    {"description": "Link payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateLinkRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "403": {"description": "Not allowed", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "409": {"description": "Short code taken", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Creation failed", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/links/{shortCode}": {
            "delete": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "Delete Link",
                "parameters": [{"type": "string", "description": "Short code", "name": "shortCode", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "403": {"description": "Not allowed", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/links/{shortCode}/stats": {
            "get": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "description": "Aggregates the most recent clicks by country, referer, device, browser, OS and day",
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "Link Statistics",
                "parameters": [{"type": "string", "description": "Short code", "name": "shortCode", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "403": {"description": "Not allowed", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/links/{shortCode}/clicks/export": {
            "get": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["Links"],
                "summary": "Export Clicks",
                "parameters": [{"type": "string", "description": "Short code", "name": "shortCode", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "403": {"description": "Not allowed", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/links/{shortCode}/qr": {
            "get": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "produces": ["image/png"],
                "tags": ["Links"],
                "summary": "Link QR Code",
                "parameters": [
                    {"type": "string", "description": "Short code", "name": "shortCode", "in": "path", "required": true},
                    {"type": "integer", "description": "Image size in pixels (128-1024)", "name": "size", "in": "query"},
                    {"type": "string", "description": "Error correction: low, medium, high, highest", "name": "level", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "403": {"description": "Not allowed", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/stats": {
            "get": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "description": "Totals, daily click timeline and breakdowns for the personal workspace or a team",
                "produces": ["application/json"],
                "tags": ["Stats"],
                "summary": "Workspace Statistics",
                "parameters": [
                    {"type": "integer", "description": "Team ID", "name": "team_id", "in": "query"},
                    {"type": "integer", "description": "Timeline days (1-90)", "name": "days", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "403": {"description": "Not allowed", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/user/api-keys": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["API Keys"],
                "summary": "List API Keys",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "The plaintext key is returned once and cannot be retrieved again",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["API Keys"],
                "summary": "Create API Key",
                "parameters": [
                    {"description": "API key payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateAPIKeyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/user/api-keys/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["API Keys"],
                "summary": "Revoke API Key",
                "parameters": [{"type": "integer", "description": "API key ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/redirect-wait": {
            "get": {
                "description": "HTML page that forwards to the target after a delay. Only http and https targets are accepted.",
                "produces": ["text/html"],
                "tags": ["Redirect"],
                "summary": "Redirect Wait Page",
                "parameters": [{"type": "string", "description": "Destination URL", "name": "target", "in": "query", "required": true}],
                "responses": {
                    "200": {"description": "HTML page", "schema": {"type": "string"}},
                    "302": {"description": "Invalid target, redirected home", "schema": {"type": "string"}}
                }
            }
        },
        "/{shortCode}": {
            "get": {
                "description": "Redirects to the destination, or to the interstitial page for links owned by free or anonymous users. Unknown codes go to the home page.",
                "tags": ["Redirect"],
                "summary": "Follow Short Link",
                "parameters": [{"type": "string", "description": "Short code", "name": "shortCode", "in": "path", "required": true}],
                "responses": {
                    "302": {"description": "Redirect", "schema": {"type": "string"}},
                    "410": {"description": "Link expired", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "dto.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "error": {}
            }
        },
        "dto.CreateLinkRequest": {
            "type": "object",
            "required": ["long_url"],
            "properties": {
                "long_url": {"type": "string", "maxLength": 2048},
                "custom_slug": {"type": "string", "maxLength": 64, "minLength": 1},
                "title": {"type": "string", "maxLength": 255},
                "team_id": {"type": "integer"},
                "expires_at": {"type": "string"}
            }
        },
        "dto.CreateAPIKeyRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string", "maxLength": 100, "minLength": 1}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"},
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Susanoo Link Shortener API",
	Description:      "Short link creation, redirection and click analytics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
