// Package docs holds the OpenAPI description served at /swagger/*any.
// Regenerate with: swag init -g cmd/journal-api/main.go -o docs
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
    "security": [{"BearerAuth": []}],
    "paths": {
        "/healthz": {"get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}},
        "/readyz": {"get": {"tags": ["health"], "summary": "Readiness check", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/api/v1/playbooks/quickstarts": {"get": {"tags": ["playbooks"], "summary": "List quickstart templates", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/playbooks/quickstarts/{slug}": {"post": {"tags": ["playbooks"], "summary": "Create a template from a quickstart", "parameters": [{"name": "slug", "in": "path", "required": true, "type": "string"}], "responses": {"201": {"description": "Created"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}}},
        "/api/v1/playbooks/templates": {
            "get": {"tags": ["playbooks"], "summary": "List template versions", "parameters": [{"name": "purpose", "in": "query", "type": "string"}, {"name": "active", "in": "query", "type": "boolean"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["playbooks"], "summary": "Create a template (version 1)", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/playbooks/templates/import": {"post": {"tags": ["playbooks"], "summary": "Import a YAML template document", "consumes": ["application/yaml"], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}},
        "/api/v1/playbooks/templates/{id}": {
            "get": {"tags": ["playbooks"], "summary": "Get a template version", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "patch": {"tags": ["playbooks"], "summary": "Publish a new template version", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}},
            "delete": {"tags": ["playbooks"], "summary": "Archive a template version", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/playbooks/templates/{id}/clone": {"post": {"tags": ["playbooks"], "summary": "Clone a template under a new name", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"201": {"description": "Created"}}}},
        "/api/v1/playbooks/templates/{id}/export": {"get": {"tags": ["playbooks"], "summary": "Export a template version as YAML", "produces": ["application/yaml"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/playbooks/evaluate": {"post": {"tags": ["playbooks"], "summary": "Evaluate values without saving", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/api/v1/playbooks/grades": {"get": {"tags": ["playbooks"], "summary": "Latest grade per trade", "parameters": [{"name": "trade_ids", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/trades": {
            "get": {"tags": ["trades"], "summary": "List trades", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["trades"], "summary": "Record a closed trade", "responses": {"201": {"description": "Created"}, "403": {"description": "Forbidden"}}}
        },
        "/api/v1/trades/{id}/playbook-responses": {
            "get": {"tags": ["responses"], "summary": "Trade response history", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["responses"], "summary": "Save a trade checklist response", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}}}
        },
        "/api/v1/journal/{date}/instrument/{symbol}/playbook-responses": {
            "get": {"tags": ["responses"], "summary": "Journal instrument response history", "parameters": [{"name": "date", "in": "path", "required": true, "type": "string"}, {"name": "symbol", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["responses"], "summary": "Save a journal instrument checklist", "parameters": [{"name": "date", "in": "path", "required": true, "type": "string"}, {"name": "symbol", "in": "path", "required": true, "type": "string"}], "responses": {"201": {"description": "Created"}, "403": {"description": "Forbidden"}}}
        },
        "/api/v1/journal/{date}/instrument/{symbol}/playbook-response": {"get": {"tags": ["responses"], "summary": "Latest journal instrument response", "parameters": [{"name": "date", "in": "path", "required": true, "type": "string"}, {"name": "symbol", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/playbook-responses/{id}/evidence": {
            "get": {"tags": ["responses"], "summary": "List evidence", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["responses"], "summary": "Attach evidence", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}
        },
        "/api/v1/playbook-responses/{id}/evidence/{eid}": {"delete": {"tags": ["responses"], "summary": "Remove evidence", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}, {"name": "eid", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/breaches": {"get": {"tags": ["guardrails"], "summary": "List breaches", "parameters": [{"name": "start", "in": "query", "type": "string"}, {"name": "end", "in": "query", "type": "string"}, {"name": "scope", "in": "query", "type": "string"}, {"name": "rule_key", "in": "query", "type": "string"}, {"name": "acknowledged", "in": "query", "type": "boolean"}, {"name": "limit", "in": "query", "type": "integer"}, {"name": "offset", "in": "query", "type": "integer"}], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/breaches/{id}/ack": {"post": {"tags": ["guardrails"], "summary": "Acknowledge a breach", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/breaches/stream": {"get": {"tags": ["guardrails"], "summary": "Websocket stream of new breaches", "responses": {"101": {"description": "Switching Protocols"}}}},
        "/api/v1/guardrails/scan": {"post": {"tags": ["guardrails"], "summary": "Run a guardrail scan", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/api/v1/guardrails/gate": {"get": {"tags": ["guardrails"], "summary": "Trading gate for a day", "parameters": [{"name": "date", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/settings/trading-rules": {
            "get": {"tags": ["settings"], "summary": "Get trading rules", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["settings"], "summary": "Replace trading rules", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/api/v1/settings/switches": {"get": {"tags": ["settings"], "summary": "List feature switches", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/settings/switches/{name}": {
            "get": {"tags": ["settings"], "summary": "Get a feature switch", "parameters": [{"name": "name", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["settings"], "summary": "Set a feature switch", "parameters": [{"name": "name", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/accounts": {
            "get": {"tags": ["accounts"], "summary": "List accounts", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["accounts"], "summary": "Create an account", "responses": {"201": {"description": "Created"}}}
        },
        "/api/v1/accounts/{id}/risk-cap": {
            "get": {"tags": ["accounts"], "summary": "Get an account risk cap", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["accounts"], "summary": "Set or clear an account risk cap", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Edge Journal Guardrail API",
	Description:      "Playbook compliance scoring, risk caps and guardrail breaches.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
