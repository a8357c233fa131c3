package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Admission API",
        "description": "Admission letter verification, registration, and review service",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Admission", "description": "Public verification and registration workflow"},
        {"name": "Admissions", "description": "Staff review of submitted registrations"},
        {"name": "Letters", "description": "Admission letter issuance and exports"},
        {"name": "Authentication", "description": "Staff login and sessions"}
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
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
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/admission/verify": {
            "post": {
                "tags": ["Admission"],
                "summary": "Verify an admission letter",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyAdmissionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/VerifiedAdmission"}},
                    "400": {"description": "Verification failed", "schema": {"$ref": "#/definitions/DetailError"}}
                }
            }
        },
        "/admission/register": {
            "post": {
                "tags": ["Admission"],
                "summary": "Submit a student registration",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterAdmissionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/StudentAdmission"}},
                    "400": {"description": "Verification failed", "schema": {"$ref": "#/definitions/DetailError"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/DetailError"}}
                }
            }
        },
        "/admission/status/{number}": {
            "get": {
                "tags": ["Admission"],
                "summary": "Check registration status",
                "parameters": [
                    {"name": "number", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AdmissionStatusResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/DetailError"}}
                }
            }
        },
        "/api/v1/admissions": {
            "get": {
                "tags": ["Admissions"],
                "summary": "List submitted registrations",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admissions/{id}": {
            "get": {
                "tags": ["Admissions"],
                "summary": "Get one registration",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admissions/{id}/review": {
            "patch": {
                "tags": ["Admissions"],
                "summary": "Approve or reject a pending registration",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewAdmissionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admission-letters": {
            "get": {
                "tags": ["Letters"],
                "summary": "List admission letters",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "gradeLevel", "in": "query", "type": "string"},
                    {"name": "academicYear", "in": "query", "type": "string"},
                    {"name": "used", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Letters"],
                "summary": "Issue a single letter",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLetterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate number", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admission-letters/bulk": {
            "post": {
                "tags": ["Letters"],
                "summary": "Issue many letters with per-row validation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkCreateLettersRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admission-letters/export": {
            "get": {
                "tags": ["Letters"],
                "summary": "Export the letter roster",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/download": {
            "get": {
                "tags": ["Letters"],
                "summary": "Download an export file",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate staff",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "VerifyAdmissionRequest": {
            "type": "object",
            "properties": {
                "admission_number": {"type": "string"},
                "child_first_name": {"type": "string"},
                "child_last_name": {"type": "string"}
            },
            "required": ["admission_number", "child_first_name", "child_last_name"]
        },
        "VerifiedAdmission": {
            "type": "object",
            "properties": {
                "admission_number": {"type": "string"},
                "child_first_name": {"type": "string"},
                "child_last_name": {"type": "string"},
                "grade_level": {"type": "string"}
            }
        },
        "Guardian": {
            "type": "object",
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string"},
                "mobile": {"type": "string"},
                "occupation": {"type": "string"},
                "relation_type": {"type": "string", "enum": ["mother", "father", "guardian"]},
                "is_primary_contact": {"type": "boolean"}
            },
            "required": ["first_name", "last_name", "email", "mobile", "relation_type"]
        },
        "RegisterAdmissionRequest": {
            "type": "object",
            "properties": {
                "admission_number": {"type": "string"},
                "student_first_name": {"type": "string"},
                "student_last_name": {"type": "string"},
                "date_of_birth": {"type": "string"},
                "place_of_birth": {"type": "string"},
                "nationality": {"type": "string"},
                "address_street": {"type": "string"},
                "address_city": {"type": "string"},
                "address_postal_code": {"type": "string"},
                "address_state": {"type": "string"},
                "parents": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/Guardian"}
                }
            },
            "required": ["admission_number", "student_first_name", "student_last_name", "parents"]
        },
        "StudentAdmission": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "admission_number": {"type": "string"},
                "student_first_name": {"type": "string"},
                "student_last_name": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "APPROVED", "REJECTED"]},
                "parents": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/Guardian"}
                },
                "submitted_at": {"type": "string"},
                "reviewed_at": {"type": "string"},
                "note": {"type": "string"}
            }
        },
        "AdmissionStatusResponse": {
            "type": "object",
            "properties": {
                "admission_number": {"type": "string"},
                "status": {"type": "string"},
                "student_first_name": {"type": "string"},
                "student_last_name": {"type": "string"},
                "submitted_at": {"type": "string"},
                "reviewed_at": {"type": "string"}
            }
        },
        "ReviewAdmissionRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["APPROVED", "REJECTED"]},
                "note": {"type": "string"}
            },
            "required": ["status"]
        },
        "CreateLetterRequest": {
            "type": "object",
            "properties": {
                "admission_number": {"type": "string"},
                "child_first_name": {"type": "string"},
                "child_last_name": {"type": "string"},
                "grade_level": {"type": "string"},
                "academic_year": {"type": "string"}
            },
            "required": ["admission_number", "child_first_name", "child_last_name"]
        },
        "BulkCreateLettersRequest": {
            "type": "object",
            "properties": {
                "letters": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/CreateLetterRequest"}
                }
            },
            "required": ["letters"]
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "FieldError": {
            "type": "object",
            "properties": {
                "loc": {"type": "array", "items": {"type": "object"}},
                "msg": {"type": "string"}
            }
        },
        "DetailError": {
            "type": "object",
            "properties": {
                "detail": {"type": "object"}
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
                "pagination": {"$ref": "#/definitions/Pagination"}
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
