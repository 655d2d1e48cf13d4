package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Workforce Export API",
        "description": "Attendance and work-hour report exports (CSV, XLSX, PDF)",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Exports", "description": "Attendance report generation and download"},
        {"name": "Operations", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Operations"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Operations"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Operations"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "Prometheus exposition format"}
                }
            }
        },
        "/api/v1/metrics/exports": {
            "get": {
                "tags": ["Operations"],
                "summary": "Export counters snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an attendance export",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ExportJobEnvelope"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing, invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role not allowed to export", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/direct": {
            "post": {
                "tags": ["Exports"],
                "summary": "Run an attendance export and download it",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": [
                    "text/csv",
                    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
                    "application/pdf",
                    "application/json"
                ],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "200": {"description": "The file as an attachment, or a JSON notice when no records matched"},
                    "401": {"description": "SESSION_EXPIRED or UNAUTHORIZED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "FETCH_FAILED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ExportStatusEnvelope"}},
                    "403": {"description": "Job belongs to another user", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/export/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export through its signed link",
                "parameters": [
                    {"in": "path", "name": "token", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "The file as an attachment"},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "FilterCriteria": {
            "type": "object",
            "properties": {
                "fromDate": {"type": "string", "description": "RFC 3339 timestamp or yyyy-MM-dd", "example": "2024-03-01"},
                "toDate": {"type": "string", "description": "RFC 3339 timestamp or yyyy-MM-dd", "example": "2024-03-01"},
                "employee": {"type": "string"},
                "employees": {"type": "array", "items": {"type": "string"}},
                "company": {"type": "string"},
                "division": {"type": "string"},
                "department": {"type": "string"},
                "vertical": {"type": "string"},
                "manager": {"type": "string"},
                "employeeType": {"type": "string"},
                "employeeSearch": {"type": "string"},
                "managerSearch": {"type": "string"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["variant", "format"],
            "properties": {
                "variant": {"type": "string", "enum": ["daily_attendance", "employee_attendance", "work_hours"]},
                "format": {"type": "string", "enum": ["csv", "xlsx", "pdf"]},
                "filters": {"$ref": "#/definitions/FilterCriteria"}
            }
        },
        "ExportJob": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "status": {"type": "string", "enum": ["QUEUED", "PROCESSING", "FINISHED", "NO_DATA", "FAILED"]},
                "progress": {"type": "integer"}
            }
        },
        "ExportStatus": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "variant": {"type": "string"},
                "format": {"type": "string"},
                "status": {"type": "string", "enum": ["QUEUED", "PROCESSING", "FINISHED", "NO_DATA", "FAILED"]},
                "phase": {"type": "string", "enum": ["initializing", "fetching", "processing", "generating", "complete"]},
                "progress": {"type": "integer", "minimum": 0, "maximum": 100},
                "recordCount": {"type": "integer"},
                "resultUrl": {"type": "string"},
                "notice": {"type": "string"},
                "error": {"type": "string"}
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
                "meta": {"type": "object"}
            }
        },
        "ExportJobEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/ExportJob"}
            }
        },
        "ExportStatusEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/ExportStatus"}
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
