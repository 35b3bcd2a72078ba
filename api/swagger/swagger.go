// Package swagger registers the OpenAPI document served at /docs.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Sistema PPC API",
    "description": "Course curriculum proposal workflow: submissors submit proposals, avaliadores evaluate them and decisores record the final verdict. Every status change is appended to an immutable history.",
    "version": "1.0.0"
  },
  "basePath": "/api",
  "paths": {
    "/register": {
      "post": {
        "tags": ["auth"],
        "summary": "Register a new account with one of the workflow roles",
        "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
        "responses": {
          "201": {"description": "Account created and logged in", "schema": {"$ref": "#/definitions/LoginResponse"}},
          "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
          "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
        }
      }
    },
    "/login": {
      "post": {
        "tags": ["auth"],
        "summary": "Authenticate and receive a token pair",
        "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
        "responses": {
          "200": {"description": "Authenticated", "schema": {"$ref": "#/definitions/LoginResponse"}},
          "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
        }
      }
    },
    "/refresh": {
      "post": {
        "tags": ["auth"],
        "summary": "Rotate a refresh token into a new token pair",
        "responses": {
          "200": {"description": "Refreshed"},
          "401": {"description": "Expired or revoked refresh token", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
        }
      }
    },
    "/logout": {
      "post": {
        "tags": ["auth"],
        "summary": "Revoke the caller's refresh token",
        "security": [{"BearerAuth": []}],
        "responses": {"204": {"description": "Logged out"}}
      }
    },
    "/user": {
      "get": {
        "tags": ["auth"],
        "summary": "Return the authenticated account",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "Current user"}}
      }
    },
    "/propostas": {
      "get": {
        "tags": ["propostas"],
        "summary": "List proposals visible to the caller's role",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "Visible proposals with full status history"}}
      },
      "post": {
        "tags": ["propostas"],
        "summary": "Submit a new course proposal (submissor only)",
        "security": [{"BearerAuth": []}],
        "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePropostaRequest"}}],
        "responses": {
          "201": {"description": "Proposal created at status submetida"},
          "403": {"description": "Caller is not a submissor", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
          "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
        }
      }
    },
    "/propostas/{id}": {
      "get": {
        "tags": ["propostas"],
        "summary": "Fetch one proposal with disciplines and status history",
        "security": [{"BearerAuth": []}],
        "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
        "responses": {
          "200": {"description": "Proposal"},
          "403": {"description": "Outside the caller's visibility", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
          "404": {"description": "No such proposal", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
        }
      }
    },
    "/propostas/{id}/avaliar": {
      "put": {
        "tags": ["propostas"],
        "summary": "Record an evaluator verdict (avaliador only)",
        "security": [{"BearerAuth": []}],
        "parameters": [
          {"name": "id", "in": "path", "required": true, "type": "string"},
          {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AvaliarRequest"}}
        ],
        "responses": {
          "200": {"description": "Updated proposal"},
          "400": {"description": "Transition not allowed from the current status", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
          "403": {"description": "Caller is not an avaliador", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
          "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
        }
      }
    },
    "/propostas/{id}/decidir": {
      "put": {
        "tags": ["propostas"],
        "summary": "Record the final verdict (decisor only)",
        "security": [{"BearerAuth": []}],
        "parameters": [
          {"name": "id", "in": "path", "required": true, "type": "string"},
          {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecidirRequest"}}
        ],
        "responses": {
          "200": {"description": "Updated proposal"},
          "400": {"description": "Transition not allowed from the current status", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
          "403": {"description": "Caller is not a decisor", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
          "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
        }
      }
    },
    "/propostas/{id}/exportar": {
      "get": {
        "tags": ["propostas"],
        "summary": "Export the proposal dossier as PDF or CSV",
        "security": [{"BearerAuth": []}],
        "parameters": [
          {"name": "id", "in": "path", "required": true, "type": "string"},
          {"name": "formato", "in": "query", "type": "string", "enum": ["pdf", "csv"], "default": "pdf"}
        ],
        "responses": {
          "200": {"description": "Rendered dossier"},
          "422": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
        }
      }
    }
  },
  "definitions": {
    "RegisterRequest": {
      "type": "object",
      "required": ["nome", "email", "senha", "tipo"],
      "properties": {
        "nome": {"type": "string"},
        "email": {"type": "string"},
        "senha": {"type": "string", "minLength": 8},
        "tipo": {"type": "string", "enum": ["submissor", "avaliador", "decisor"]}
      }
    },
    "LoginRequest": {
      "type": "object",
      "required": ["email", "senha"],
      "properties": {
        "email": {"type": "string"},
        "senha": {"type": "string"}
      }
    },
    "LoginResponse": {
      "type": "object",
      "properties": {
        "access_token": {"type": "string"},
        "refresh_token": {"type": "string"},
        "token_type": {"type": "string"},
        "expires_in": {"type": "integer"}
      }
    },
    "CreatePropostaRequest": {
      "type": "object",
      "required": ["nome", "carga_horaria_total", "quantidade_semestres", "justificativa", "impacto_social", "disciplinas"],
      "properties": {
        "nome": {"type": "string", "maxLength": 255},
        "carga_horaria_total": {"type": "integer", "minimum": 1},
        "quantidade_semestres": {"type": "integer", "minimum": 1},
        "justificativa": {"type": "string"},
        "impacto_social": {"type": "string"},
        "disciplinas": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "properties": {
              "nome": {"type": "string", "maxLength": 255},
              "carga_horaria": {"type": "integer", "minimum": 1},
              "semestre": {"type": "integer", "minimum": 1}
            }
          }
        }
      }
    },
    "AvaliarRequest": {
      "type": "object",
      "required": ["comentario", "status_novo"],
      "properties": {
        "comentario": {"type": "string"},
        "status_novo": {"type": "string", "enum": ["ajustes_requeridos", "em_aprovacao"]}
      }
    },
    "DecidirRequest": {
      "type": "object",
      "required": ["comentario", "status_final"],
      "properties": {
        "comentario": {"type": "string"},
        "status_final": {"type": "string", "enum": ["aprovada", "rejeitada"]}
      }
    },
    "ErrorEnvelope": {
      "type": "object",
      "properties": {
        "error": {
          "type": "object",
          "properties": {
            "code": {"type": "string"},
            "message": {"type": "string"},
            "status": {"type": "integer"},
            "fields": {"type": "object", "additionalProperties": {"type": "string"}}
          }
        }
      }
    }
  },
  "securityDefinitions": {
    "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
  }
}`

// SwaggerInfo holds exported swagger metadata.
var SwaggerInfo = &swag.Spec{
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
