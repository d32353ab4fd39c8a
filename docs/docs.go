// Package docs registers the OpenAPI description served by the mock server's
// swagger UI.
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
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "responses": {
                    "200": {"description": "token pair and user"},
                    "401": {"description": "invalid credentials"}
                }
            }
        },
        "/auth/secure-admin-auth": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate an admin with an additional admin key",
                "responses": {
                    "200": {"description": "token pair and user"},
                    "403": {"description": "admin key rejected"}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Create a student account",
                "responses": {
                    "201": {"description": "token pair and user"},
                    "409": {"description": "email already registered"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange a refresh token for a rotated pair",
                "responses": {
                    "200": {"description": "new token pair"},
                    "401": {"description": "refresh token invalid or already used"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Return the authenticated user",
                "responses": {
                    "200": {"description": "user"},
                    "401": {"description": "missing or expired token"}
                }
            }
        },
        "/quiz": {
            "get": {
                "tags": ["Quiz"],
                "summary": "List quizzes",
                "responses": {"200": {"description": "quiz summaries"}}
            },
            "post": {
                "tags": ["Quiz"],
                "summary": "(Admin) Create a quiz from an import payload",
                "responses": {"201": {"description": "created quiz"}}
            }
        },
        "/quiz/{id}": {
            "get": {
                "tags": ["Quiz"],
                "summary": "Quiz detail with the caller's attempt, if any",
                "responses": {"200": {"description": "quiz detail"}}
            }
        },
        "/quiz-attempt": {
            "post": {
                "tags": ["Quiz"],
                "summary": "Record the start of an attempt",
                "responses": {
                    "201": {"description": "attempt record"},
                    "409": {"description": "quiz already attempted"}
                }
            }
        },
        "/quiz-submit": {
            "post": {
                "tags": ["Quiz"],
                "summary": "Submit answers and receive the score",
                "responses": {
                    "200": {"description": "score and total marks"},
                    "409": {"description": "attempt missing or already submitted"}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Campus"],
                "summary": "List enrolled courses",
                "responses": {"200": {"description": "courses"}}
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Campus"],
                "summary": "List notifications",
                "responses": {"200": {"description": "notifications"}}
            }
        },
        "/notifications/{id}/read": {
            "put": {
                "tags": ["Campus"],
                "summary": "Mark a notification as read",
                "responses": {"204": {"description": "marked"}}
            }
        },
        "/interview": {
            "post": {
                "tags": ["Interview"],
                "summary": "One turn of the practice-interview chat",
                "responses": {"200": {"description": "interviewer reply"}}
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{"http"},
	Title:            "Classline Mock LMS API",
	Description:      "In-memory development backend for the classline client.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
