// Package docs registers the generated Swagger spec for the API server.
// Regenerate with: swag init -g cmd/api/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "Hoop Combine"},
        "license": {"name": "MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/metrics/definitions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "List metric definitions",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/metrics/{cohort}/{playerID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "Get player metric values",
                "parameters": [
                    {"type": "string", "name": "cohort", "in": "path", "required": true, "enum": ["current_nba", "all_time_nba", "current_draft", "all_time_draft", "global"]},
                    {"type": "integer", "name": "playerID", "in": "path", "required": true},
                    {"type": "string", "name": "season", "in": "query"},
                    {"type": "string", "name": "scope", "in": "query"},
                    {"type": "string", "name": "source", "in": "query", "enum": ["anthro", "agility", "shooting"]}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/similarity/{playerID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["similarity"],
                "summary": "Get similar players",
                "parameters": [
                    {"type": "integer", "name": "playerID", "in": "path", "required": true},
                    {"type": "string", "name": "cohort", "in": "query"},
                    {"type": "string", "name": "season", "in": "query"},
                    {"type": "string", "name": "scope", "in": "query"},
                    {"type": "string", "name": "dimension", "in": "query", "enum": ["anthro", "combine", "shooting", "composite"]},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Not Found"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8000",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Combine Data API",
	Description:      "Read API for draft-combine metric snapshots (ranks, percentiles, z-scores) and pairwise player similarity.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
