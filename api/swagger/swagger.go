package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Grievance API",
        "description": "Citizen grievance lifecycle, audit trail, geographic analytics and works projects",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Grievances", "description": "Intake, maintenance and status lifecycle"},
        {"name": "Analytics", "description": "Geographic rollups and critical items"},
        {"name": "Audit", "description": "Append-only mutation history"},
        {"name": "Projects", "description": "Government works projects"}
    ],
    "paths": {
        "/grievances": {
            "get": {
                "tags": ["Grievances"],
                "summary": "List grievances",
                "parameters": [
                    {"name": "district", "in": "query", "type": "string"},
                    {"name": "mandal", "in": "query", "type": "string"},
                    {"name": "village", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated statuses"},
                    {"name": "priority", "in": "query", "type": "string", "description": "Comma separated priorities"},
                    {"name": "categoryId", "in": "query", "type": "string"},
                    {"name": "assignedTo", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Grievances"],
                "summary": "Submit a grievance",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateGrievanceRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "VALIDATION_ERROR", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "DUPLICATE_DETECTED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "SEQUENCE_UNAVAILABLE", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grievances/{id}": {
            "get": {
                "tags": ["Grievances"],
                "summary": "Get a grievance",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "NOT_FOUND", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Grievances"],
                "summary": "Edit grievance fields",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "CONCURRENT_MODIFICATION", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Grievances"],
                "summary": "Soft-delete a grievance",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/grievances/{id}/assign": {
            "post": {
                "tags": ["Grievances"],
                "summary": "Assign a grievance to an officer",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignGrievanceRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/grievances/{id}/status": {
            "post": {
                "tags": ["Grievances"],
                "summary": "Move a grievance to a new status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "CONCURRENT_MODIFICATION", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "INVALID_TRANSITION", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grievances/{id}/status-history": {
            "get": {
                "tags": ["Grievances"],
                "summary": "Status history and allowed next states",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/audit/{entityType}/{entityId}": {
            "get": {
                "tags": ["Audit"],
                "summary": "Audit history of an entity, newest first",
                "parameters": [
                    {"name": "entityType", "in": "path", "required": true, "type": "string", "enum": ["grievance", "project"]},
                    {"name": "entityId", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/analytics/aggregate": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Aggregate grievances by geography",
                "parameters": [
                    {"name": "groupBy", "in": "query", "required": true, "type": "string", "enum": ["district", "mandal", "village"]},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "constituency", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "priority", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "INVALID_GROUP_BY", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/analytics/critical": {
            "get": {
                "tags": ["Analytics"],
                "summary": "List critical grievances",
                "parameters": [
                    {"name": "district", "in": "query", "type": "string"},
                    {"name": "mandal", "in": "query", "type": "string"},
                    {"name": "priority", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/analytics/system": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Service instrumentation snapshot",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/projects": {
            "get": {
                "tags": ["Projects"],
                "summary": "List projects",
                "parameters": [
                    {"name": "district", "in": "query", "type": "string"},
                    {"name": "constituency", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Projects"],
                "summary": "Register a project",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/projects/{id}": {
            "get": {
                "tags": ["Projects"],
                "summary": "Get a project",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "patch": {
                "tags": ["Projects"],
                "summary": "Edit a project",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Projects"],
                "summary": "Soft-delete a project",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        }
    },
    "definitions": {
        "CreateGrievanceRequest": {
            "type": "object",
            "required": ["title", "description", "requesterName", "requesterPhone", "district", "mandal", "village"],
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "requesterName": {"type": "string"},
                "requesterPhone": {"type": "string"},
                "requesterEmail": {"type": "string"},
                "district": {"type": "string"},
                "mandal": {"type": "string"},
                "village": {"type": "string"},
                "constituency": {"type": "string"},
                "categoryId": {"type": "string"},
                "priority": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH", "URGENT"]},
                "estimatedCost": {"type": "number"},
                "expectedResolutionDate": {"type": "string", "format": "date-time"}
            }
        },
        "AssignGrievanceRequest": {
            "type": "object",
            "required": ["assigneeId"],
            "properties": {
                "assigneeId": {"type": "string"},
                "remarks": {"type": "string"}
            }
        },
        "TransitionStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["PENDING", "ASSIGNED", "IN_PROGRESS", "UNDER_REVIEW", "RESOLVED", "CLOSED", "REJECTED"]},
                "remarks": {"type": "string"},
                "actualResolutionDate": {"type": "string", "format": "date-time"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total": {"type": "integer"},
                "totalPages": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "retryable": {"type": "boolean"},
                "details": {"type": "object"}
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
