package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academic Engine API",
        "description": "Course enrollment, prerequisite checks, schedule conflicts and grade recording.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Enrollments", "description": "Seat reservation, drops and approval"},
        {"name": "Grades", "description": "Grade entry, rosters, exports and GPA"}
    ],
    "paths": {
        "/sections/{id}/enrollments": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a student in a section",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Section or student not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Section full, schedule conflict or already enrolled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Prerequisite not met", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sections/{id}/enrollments/{studentId}": {
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Drop a student from a section",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Dropped"},
                    "404": {"description": "No seat held", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/approve": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Approve a pending enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Enrollment is not pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/reject": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Reject a pending enrollment and release its seat",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Enrollment is not pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List a student's enrollments",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated statuses"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/gpa/recalculate": {
            "post": {
                "tags": ["Grades"],
                "summary": "Recompute a student's GPA from completed enrollments",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sections/{id}/grades": {
            "get": {
                "tags": ["Grades"],
                "summary": "List grades of a section",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Grades"],
                "summary": "Record midterm and final grades",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnterGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Grades outside 0..100", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active enrollment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sections/{id}/grades/export": {
            "get": {
                "tags": ["Grades"],
                "summary": "Download the grade sheet of a section",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        }
    },
    "definitions": {
        "EnrollRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"}
            },
            "required": ["student_id"]
        },
        "EnterGradeRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "midterm_grade": {"type": "number", "minimum": 0, "maximum": 100},
                "final_grade": {"type": "number", "minimum": 0, "maximum": 100}
            },
            "required": ["student_id", "midterm_grade", "final_grade"]
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
