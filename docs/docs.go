// Package docs registers the OpenAPI document served at /swagger/.
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/api/auth/login": {
            "post": {"tags": ["auth"], "summary": "Sign in", "responses": {"200": {"description": "token and user"}, "401": {"description": "invalid credentials"}}}
        },
        "/api/auth/register": {
            "post": {"tags": ["auth"], "summary": "Sign up", "responses": {"201": {"description": "token and user"}, "422": {"description": "field errors"}}}
        },
        "/api/games": {
            "get": {"tags": ["games"], "summary": "List games", "responses": {"200": {"description": "games"}}},
            "post": {"tags": ["games"], "summary": "Create a game", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "game"}, "422": {"description": "field errors"}}}
        },
        "/api/games/{id}": {
            "get": {"tags": ["games"], "summary": "Get a game", "responses": {"200": {"description": "game"}, "404": {"description": "not found"}}},
            "patch": {"tags": ["games"], "summary": "Partially update a game", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "game"}, "422": {"description": "field errors"}}},
            "delete": {"tags": ["games"], "summary": "Delete a game", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "deleted"}, "409": {"description": "game still has tournaments"}}}
        },
        "/api/games/{id}/image": {
            "post": {"tags": ["games"], "summary": "Upload game image", "security": [{"BearerAuth": []}], "consumes": ["multipart/form-data"], "responses": {"200": {"description": "game"}}}
        },
        "/api/tournaments": {
            "get": {"tags": ["tournaments"], "summary": "List tournaments", "responses": {"200": {"description": "tournaments"}}},
            "post": {"tags": ["tournaments"], "summary": "Create a tournament", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "tournament"}, "422": {"description": "field errors"}}}
        },
        "/api/tournaments/{id}": {
            "get": {"tags": ["tournaments"], "summary": "Tournament with registrations", "responses": {"200": {"description": "tournament"}}},
            "patch": {"tags": ["tournaments"], "summary": "Partially update a tournament", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "tournament"}}},
            "delete": {"tags": ["tournaments"], "summary": "Delete a tournament", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "deleted"}}}
        },
        "/api/tournaments/{id}/status": {
            "patch": {"tags": ["tournaments"], "summary": "Quick action: change status", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "tournament"}}}
        },
        "/api/tournaments/{id}/register": {
            "post": {"tags": ["tournaments"], "summary": "Register the current user", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "registration and checkout url"}, "303": {"description": "redirect to hosted checkout"}}}
        },
        "/api/registrations": {
            "get": {"tags": ["registrations"], "summary": "List registrations", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "registrations"}}},
            "post": {"tags": ["registrations"], "summary": "Create a registration", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "registration"}}}
        },
        "/api/registrations/{id}": {
            "get": {"tags": ["registrations"], "summary": "Get a registration", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "registration"}}},
            "patch": {"tags": ["registrations"], "summary": "Partially update a registration", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "registration"}}},
            "delete": {"tags": ["registrations"], "summary": "Delete a registration", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "deleted"}}}
        },
        "/api/registrations/{id}/payment": {
            "patch": {"tags": ["registrations"], "summary": "Quick action: change payment status", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "registration"}, "409": {"description": "stale or invalid transition"}}}
        },
        "/api/users": {
            "get": {"tags": ["users"], "summary": "List users", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "users"}}}
        },
        "/api/dashboard": {
            "get": {"tags": ["dashboard"], "summary": "Admin dashboard counters", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "stats"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Vulca Torneos API",
	Description:      "Games, tournaments and registrations administration.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
