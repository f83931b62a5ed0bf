package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Contest Entry API",
        "description": "Paid contest admission, payment reconciliation and quiz qualification",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Entries", "description": "Contest entry admission"},
        {"name": "Payments", "description": "Charge creation, capture and refunds"},
        {"name": "Quizzes", "description": "Qualifying quiz submission"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/entries": {
            "post": {
                "tags": ["Entries"],
                "summary": "Enter a contest",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnterContestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate entry or contest full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Contest inactive", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/entries/user": {
            "get": {
                "tags": ["Entries"],
                "summary": "List the caller's entries",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/payments/orders": {
            "post": {
                "tags": ["Payments"],
                "summary": "Initiate a charge for a contest entry",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/InitiateChargeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Gateway failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/payments/capture": {
            "post": {
                "tags": ["Payments"],
                "summary": "Capture a previously created charge",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CaptureRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown order", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/payments/user": {
            "get": {
                "tags": ["Payments"],
                "summary": "List the caller's payments",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/payments/{id}/refund": {
            "post": {
                "tags": ["Payments"],
                "summary": "Request a refund for a completed payment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/quizzes/contest/{contestId}": {
            "get": {
                "tags": ["Quizzes"],
                "summary": "Get the public quiz for a contest",
                "parameters": [
                    {"name": "contestId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/quizzes/contest/{contestId}/submit": {
            "post": {
                "tags": ["Quizzes"],
                "summary": "Submit a quiz answer for grading",
                "parameters": [
                    {"name": "contestId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitAnswerRequest"}}
                ],
                "responses": {
                    "200": {"description": "Graded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "402": {"description": "Payment not completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already attempted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "EnterContestRequest": {
            "type": "object",
            "required": ["contest_id"],
            "properties": {
                "contest_id": {"type": "string"}
            }
        },
        "InitiateChargeRequest": {
            "type": "object",
            "required": ["contest_id"],
            "properties": {
                "contest_id": {"type": "string"}
            }
        },
        "CaptureRequest": {
            "type": "object",
            "required": ["gateway_order_id", "token"],
            "properties": {
                "gateway_order_id": {"type": "string"},
                "token": {"type": "string"}
            }
        },
        "SubmitAnswerRequest": {
            "type": "object",
            "required": ["selected_answer"],
            "properties": {
                "selected_answer": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
