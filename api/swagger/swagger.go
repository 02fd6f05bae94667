package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Pre-Enrollment API",
        "description": "University unit pre-enrollment service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and session management"},
        {"name": "Units", "description": "Unit catalogue"},
        {"name": "Semesters", "description": "Academic terms and enrollment windows"},
        {"name": "Schedule", "description": "Days and time slot reference data"},
        {"name": "Enrollments", "description": "Pre-enrollment workflow"},
        {"name": "Notifications", "description": "Announcements and email broadcast"},
        {"name": "Users", "description": "Account management"},
        {"name": "Students", "description": "Student profiles"},
        {"name": "Dashboard", "description": "Aggregated statistics"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user info",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/units": {
            "get": {
                "tags": ["Units"],
                "summary": "List units",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Units"],
                "summary": "Create unit",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Duplicate unit code"}
                }
            }
        },
        "/units/{id}": {
            "get": {
                "tags": ["Units"],
                "summary": "Get unit",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Units"],
                "summary": "Update unit",
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Units"],
                "summary": "Delete unit",
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Unit has enrollments"}
                }
            }
        },
        "/semesters": {
            "get": {"tags": ["Semesters"], "summary": "List semesters", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Semesters"], "summary": "Create semester", "responses": {"201": {"description": "Created"}}}
        },
        "/semesters/{id}": {
            "get": {"tags": ["Semesters"], "summary": "Get semester", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Semesters"], "summary": "Update semester", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Semesters"], "summary": "Delete semester", "responses": {"204": {"description": "No Content"}, "409": {"description": "Semester has enrollments"}}}
        },
        "/days": {
            "get": {"tags": ["Schedule"], "summary": "List weekdays", "responses": {"200": {"description": "OK"}}}
        },
        "/timeslots": {
            "get": {"tags": ["Schedule"], "summary": "List time slots", "responses": {"200": {"description": "OK"}}}
        },
        "/enrollments": {
            "get": {"tags": ["Enrollments"], "summary": "List enrollments", "responses": {"200": {"description": "OK"}}},
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a student into a unit",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Window closed or invalid time range"},
                    "409": {"description": "Already enrolled"}
                }
            }
        },
        "/enrollments/my-enrollments": {
            "get": {"tags": ["Enrollments"], "summary": "List own enrollments", "responses": {"200": {"description": "OK"}}},
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll the current student",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Already enrolled"}
                }
            }
        },
        "/enrollments/{id}": {
            "get": {"tags": ["Enrollments"], "summary": "Get enrollment", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Enrollments"], "summary": "Replace availability set", "responses": {"200": {"description": "OK"}}},
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Cancel enrollment",
                "parameters": [
                    {"name": "permanent", "in": "query", "type": "boolean", "description": "Hard delete (admin only)"}
                ],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/enrollments/export": {
            "get": {"tags": ["Enrollments"], "summary": "Export roster as CSV or PDF", "responses": {"200": {"description": "File download"}}}
        },
        "/notifications": {
            "get": {"tags": ["Notifications"], "summary": "List notifications", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Notifications"], "summary": "Create notification", "responses": {"201": {"description": "Created"}}}
        },
        "/notifications/{id}": {
            "get": {"tags": ["Notifications"], "summary": "Get notification", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Notifications"], "summary": "Update notification", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Notifications"], "summary": "Delete notification", "responses": {"204": {"description": "No Content"}}}
        },
        "/notifications/{id}/broadcast": {
            "post": {"tags": ["Notifications"], "summary": "Broadcast by email", "responses": {"202": {"description": "Accepted"}}}
        },
        "/users": {
            "get": {"tags": ["Users"], "summary": "List users", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Users"], "summary": "Create user", "responses": {"201": {"description": "Created"}}}
        },
        "/users/{id}": {
            "get": {"tags": ["Users"], "summary": "Get user", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Users"], "summary": "Update user", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Users"], "summary": "Deactivate user", "responses": {"204": {"description": "No Content"}}}
        },
        "/students": {
            "get": {"tags": ["Students"], "summary": "List student profiles", "responses": {"200": {"description": "OK"}}}
        },
        "/students/me": {
            "get": {"tags": ["Students"], "summary": "Current student's profile", "responses": {"200": {"description": "OK"}}}
        },
        "/students/{id}": {
            "get": {"tags": ["Students"], "summary": "Get student profile", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Students"], "summary": "Update student profile", "responses": {"200": {"description": "OK"}}}
        },
        "/dashboard/admin": {
            "get": {"tags": ["Dashboard"], "summary": "Admin statistics", "responses": {"200": {"description": "OK"}}}
        },
        "/dashboard/student": {
            "get": {"tags": ["Dashboard"], "summary": "Student statistics", "responses": {"200": {"description": "OK"}}}
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "EnrollRequest": {
            "type": "object",
            "required": ["student_profile_id", "unit_id", "semester_id"],
            "properties": {
                "student_profile_id": {"type": "string"},
                "unit_id": {"type": "string"},
                "semester_id": {"type": "string"},
                "slots": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ScheduleSlot"}
                },
                "availability_ids": {
                    "type": "array",
                    "items": {"type": "string"},
                    "description": "Pre-resolved availability IDs, alternative to slots"
                }
            }
        },
        "ScheduleSlot": {
            "type": "object",
            "required": ["day_name", "time_slot"],
            "properties": {
                "day_name": {"type": "string", "example": "Monday"},
                "time_slot": {"type": "string", "example": "6:00pm - 9:00pm"}
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
