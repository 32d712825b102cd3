// Package docs is generated by swaggo/swag from the handler annotations.
// Regenerate with: swag init -g cmd/vpnbot/main.go -o internal/api/docs
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
        "/auth/token": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Issue an access token",
                "parameters": [
                    {"description": "API key", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.tokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.tokenResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.readinessResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.readinessResponse"}}
                }
            }
        },
        "/v1/admin/reconcile": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Run one reconciliation pass against the panel",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.reconcileResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/admin/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Usage overview",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.statsResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/users": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Register or fetch a user",
                "parameters": [
                    {"description": "Chat platform identity", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.ensureUserRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.userResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/users/{user_id}/configs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["configs"],
                "summary": "List active configs",
                "parameters": [
                    {"type": "integer", "description": "Chat platform user id", "name": "user_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.listConfigsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["configs"],
                "summary": "Provision a new config",
                "parameters": [
                    {"type": "integer", "description": "Chat platform user id", "name": "user_id", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.provisionedConfigResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "409": {"description": "quota exceeded", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "502": {"description": "panel failure", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/users/{user_id}/configs/{config_id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["configs"],
                "summary": "Show one config with its QR code",
                "parameters": [
                    {"type": "integer", "description": "Chat platform user id", "name": "user_id", "in": "path", "required": true},
                    {"type": "string", "description": "Config id", "name": "config_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.provisionedConfigResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["configs"],
                "summary": "Revoke a config",
                "parameters": [
                    {"type": "integer", "description": "Chat platform user id", "name": "user_id", "in": "path", "required": true},
                    {"type": "string", "description": "Config id", "name": "config_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.deleteConfigResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "502": {"description": "panel failure, config left active", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.configLinks": {
            "type": "object",
            "properties": {"self": {"type": "string"}}
        },
        "handler.configSummary": {
            "type": "object",
            "properties": {
                "_links": {"$ref": "#/definitions/handler.configLinks"},
                "config_id": {"type": "string"},
                "created_at": {"type": "string"},
                "email": {"type": "string"},
                "expires_at": {"type": "string"},
                "flow": {"type": "string"},
                "port": {"type": "integer"},
                "uri": {"type": "string"}
            }
        },
        "handler.dailyStat": {
            "type": "object",
            "properties": {"date": {"type": "string"}, "new_users": {"type": "integer"}}
        },
        "handler.deleteConfigResponse": {
            "type": "object",
            "properties": {"config_id": {"type": "string"}, "remaining": {"type": "integer"}}
        },
        "handler.dependencyStatus": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "status": {"type": "string"}}
        },
        "handler.ensureUserRequest": {
            "type": "object",
            "required": ["external_id"],
            "properties": {
                "display_name": {"type": "string", "maxLength": 256},
                "external_id": {"type": "integer"},
                "handle": {"type": "string", "maxLength": 64}
            }
        },
        "handler.errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "handler.listConfigsResponse": {
            "type": "object",
            "properties": {
                "configs": {"type": "array", "items": {"$ref": "#/definitions/handler.configSummary"}},
                "count": {"type": "integer"}
            }
        },
        "handler.provisionedConfigResponse": {
            "type": "object",
            "properties": {
                "_links": {"$ref": "#/definitions/handler.configLinks"},
                "client_uuid": {"type": "string"},
                "config_id": {"type": "string"},
                "email": {"type": "string"},
                "expires_at": {"type": "string"},
                "flow": {"type": "string"},
                "port": {"type": "integer"},
                "public_key": {"type": "string"},
                "qr_code_png": {"type": "string"},
                "remaining": {"type": "integer"},
                "server_address": {"type": "string"},
                "short_id": {"type": "string"},
                "sni": {"type": "string"},
                "uri": {"type": "string"}
            }
        },
        "handler.readinessResponse": {
            "type": "object",
            "properties": {
                "dependencies": {"type": "object", "additionalProperties": {"$ref": "#/definitions/handler.dependencyStatus"}},
                "status": {"type": "string"}
            }
        },
        "handler.reconcileResponse": {
            "type": "object",
            "properties": {
                "expired": {"type": "array", "items": {"type": "string"}},
                "local_active": {"type": "integer"},
                "missing_remote": {"type": "array", "items": {"type": "string"}},
                "orphans_deleted": {"type": "array", "items": {"type": "integer"}},
                "orphans_found": {"type": "array", "items": {"type": "integer"}},
                "remote_inbounds": {"type": "integer"}
            }
        },
        "handler.statsResponse": {
            "type": "object",
            "properties": {
                "active_configs": {"type": "integer"},
                "registrations": {"type": "array", "items": {"$ref": "#/definitions/handler.dailyStat"}},
                "total_users": {"type": "integer"}
            }
        },
        "handler.tokenRequest": {
            "type": "object",
            "required": ["key"],
            "properties": {"key": {"type": "string"}}
        },
        "handler.tokenResponse": {
            "type": "object",
            "properties": {"role": {"type": "string"}, "token": {"type": "string"}}
        },
        "handler.userResponse": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "display_name": {"type": "string"},
                "external_id": {"type": "integer"},
                "handle": {"type": "string"},
                "is_admin": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "VPN Provisioner API",
	Description:      "Issues and revokes VLESS/Reality credentials on a 3X-UI panel.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
