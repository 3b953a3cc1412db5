// Package docs registers the OpenAPI description served under /swagger/.
// Regenerate with `swag init -g cmd/api/main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/admin/assignments": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Resolve the template's signing workflow per employee and store one assignment each (hr_admin only). Per-employee failures are listed in the response.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Assignments"],
                "summary": "Create document assignments",
                "parameters": [
                    {
                        "description": "Assignment data",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.CreateAssignmentsRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/service.CreateResult"}},
                    "400": {"description": "Invalid input or template configuration", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Forbidden - hr_admin only", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Template not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Template inactive", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/assignments/{id}/dispatch": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Create a provider signing session for an assigned document (hr_admin only)",
                "produces": ["application/json"],
                "tags": ["Assignments"],
                "summary": "Dispatch assignment to the signing provider",
                "parameters": [
                    {"type": "integer", "description": "Assignment ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/signing.DispatchResult"}},
                    "400": {"description": "Invalid ID or signer without email", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Assignment not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Assignment already sent or closed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/assignments/{id}/audit": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Get a paginated list of audit entries for an assignment, newest first (hr_admin only)",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "List assignment audit trail",
                "parameters": [
                    {"type": "integer", "description": "Assignment ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "default": 50, "description": "Items per page", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "List of audit logs", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.AuditLog"}}},
                    "404": {"description": "Assignment not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/assignments/my": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Assignments where the caller is the recipient or a signer, newest first",
                "produces": ["application/json"],
                "tags": ["Assignments"],
                "summary": "List my assignments",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.DocumentAssignment"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/assignments/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Get an assignment visible to the caller. Admins see every assignment.",
                "produces": ["application/json"],
                "tags": ["Assignments"],
                "summary": "Get assignment",
                "parameters": [
                    {"type": "integer", "description": "Assignment ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.AssignmentDetail"}},
                    "404": {"description": "Assignment not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/assignments/{id}/sign": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Stamp the caller's signature into the document. The final signer closes the assignment and the signed PDF is attached to the CRM record.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Signing"],
                "summary": "Sign assignment",
                "parameters": [
                    {"type": "integer", "description": "Assignment ID", "name": "id", "in": "path", "required": true},
                    {
                        "description": "Signature data",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.SignRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/signing.CompleteResult"}},
                    "400": {"description": "Invalid image or placement", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Assignment not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Already signed or waiting for another signer", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "413": {"description": "Request body too large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/tasks/my": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Open sign_document tasks of the caller. Tasks close when the assignment is signed.",
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "List my pending tasks",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.PendingTask"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/webhooks/opensign": {
            "post": {
                "description": "Signed, declined and expired notifications. The raw body must carry a hex HMAC-SHA256 in X-Signature. Unrecognized events are acknowledged.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Webhooks"],
                "summary": "OpenSign webhook",
                "parameters": [
                    {"type": "string", "description": "HMAC-SHA256 of the raw body", "name": "X-Signature", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "received", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}},
                    "401": {"description": "Invalid signature", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "handlers.CreateAssignmentsRequest": {
            "type": "object",
            "required": ["templateId", "employeeIds"],
            "properties": {
                "templateId": {"type": "integer"},
                "employeeIds": {"type": "array", "items": {"type": "integer"}},
                "priority": {"type": "string", "enum": ["high", "medium", "low"]},
                "dueDate": {"type": "string", "example": "2026-11-01"}
            }
        },
        "handlers.SignRequest": {
            "type": "object",
            "required": ["signatureImage"],
            "properties": {
                "signatureImage": {"type": "string", "description": "base64 PNG"},
                "fieldPlacements": {"type": "array", "items": {"$ref": "#/definitions/pdf.PercentField"}}
            }
        },
        "pdf.PercentField": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "x": {"type": "number"},
                "y": {"type": "number"},
                "width": {"type": "number"},
                "height": {"type": "number"}
            }
        },
        "service.CreateResult": {
            "type": "object",
            "properties": {
                "succeeded": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "employeeId": {"type": "integer"},
                            "assignmentId": {"type": "integer"},
                            "signers": {"type": "array", "items": {"$ref": "#/definitions/workflow.ResolvedSigner"}}
                        }
                    }
                },
                "failed": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "employeeId": {"type": "integer"},
                            "error": {"type": "string"}
                        }
                    }
                }
            }
        },
        "workflow.ResolvedSigner": {
            "type": "object",
            "properties": {
                "order": {"type": "integer"},
                "bitrixId": {"type": "integer"},
                "employeeName": {"type": "string"},
                "employeeEmail": {"type": "string"},
                "roleName": {"type": "string"}
            }
        },
        "signing.DispatchResult": {
            "type": "object",
            "properties": {
                "signatureRequestId": {"type": "string"},
                "signUrl": {"type": "string"}
            }
        },
        "signing.CompleteResult": {
            "type": "object",
            "properties": {
                "documentUrl": {"type": "string"},
                "externalFileId": {"type": "string"},
                "completed": {"type": "boolean"},
                "nextSignerStep": {"type": "integer"}
            }
        },
        "handlers.AssignmentDetail": {
            "allOf": [
                {"$ref": "#/definitions/models.DocumentAssignment"},
                {
                    "type": "object",
                    "properties": {
                        "signers": {"type": "array", "items": {"$ref": "#/definitions/models.DocumentSigner"}}
                    }
                }
            ]
        },
        "models.DocumentSigner": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "assignment_id": {"type": "integer"},
                "signer_order": {"type": "integer"},
                "employee_id": {"type": "integer"},
                "display_name": {"type": "string"},
                "email": {"type": "string"},
                "role_name": {"type": "string"},
                "status": {"type": "string"},
                "signed_at": {"type": "string"}
            }
        },
        "models.PendingTask": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "employee_id": {"type": "integer"},
                "type": {"type": "string"},
                "title": {"type": "string"},
                "priority": {"type": "string"},
                "due_date": {"type": "string"},
                "related_assignment_id": {"type": "integer"},
                "completed_at": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "models.AuditLog": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "assignment_id": {"type": "integer"},
                "actor": {"type": "string"},
                "action": {"type": "string"},
                "outcome": {"type": "string"},
                "details": {"type": "string"},
                "ip_address": {"type": "string"},
                "user_agent": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "models.DocumentAssignment": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "template_id": {"type": "integer"},
                "employee_id": {"type": "integer"},
                "created_by": {"type": "integer"},
                "status": {"type": "string", "enum": ["assigned", "sent", "signed", "declined", "expired"]},
                "priority": {"type": "string"},
                "due_date": {"type": "string"},
                "signing_workflow": {"type": "array", "items": {"$ref": "#/definitions/workflow.ResolvedSigner"}},
                "current_signer_step": {"type": "integer"},
                "signature_request_id": {"type": "string"},
                "external_file_id": {"type": "string"},
                "assigned_at": {"type": "string"},
                "sent_at": {"type": "string"},
                "signed_at": {"type": "string"},
                "completed_at": {"type": "string"},
                "last_reminded_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "HR Center API",
	Description:      "Document assignment and signing backend for the HR portal",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
