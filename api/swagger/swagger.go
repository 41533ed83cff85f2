package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA ADP Results API",
        "description": "Term result computation, publishing and end of year promotion decisions",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Results", "description": "Term result computation and publishing"},
        {"name": "Grade Scales", "description": "Versioned letter grade bands"},
        {"name": "Promotion Rules", "description": "Versioned promotion criteria per level"},
        {"name": "Promotions", "description": "End of year promotion decisions"}
    ],
    "paths": {
        "/results/compute": {
            "post": {
                "tags": ["Results"],
                "summary": "Compute term results for a class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ComputeResultsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Results already published", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Grade scale misconfigured", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "423": {"description": "Class is being processed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/publish": {
            "post": {
                "tags": ["Results"],
                "summary": "Publish or unpublish class results",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PublishResultsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Unpublish requires an administrator", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Nothing to publish", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results": {
            "get": {
                "tags": ["Results"],
                "summary": "List class results for a term",
                "parameters": [
                    {"name": "termId", "in": "query", "required": true, "type": "string"},
                    {"name": "classId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/students/{studentId}": {
            "get": {
                "tags": ["Results"],
                "summary": "Get a student's term result",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "termId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/{id}/remarks": {
            "patch": {
                "tags": ["Results"],
                "summary": "Set remarks on a term result",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateRemarksRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grade-scales": {
            "get": {
                "tags": ["Grade Scales"],
                "summary": "List grade scales",
                "parameters": [
                    {"name": "name", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Grade Scales"],
                "summary": "Create a grade scale version",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateGradeScaleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Bands overlap or leave a gap", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grade-scales/{id}": {
            "get": {
                "tags": ["Grade Scales"],
                "summary": "Get grade scale",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grade-scales/{id}/default": {
            "post": {
                "tags": ["Grade Scales"],
                "summary": "Make a grade scale the default",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/promotion-rules": {
            "get": {
                "tags": ["Promotion Rules"],
                "summary": "List promotion rules",
                "parameters": [
                    {"name": "fromLevel", "in": "query", "type": "string"},
                    {"name": "toLevel", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Promotion Rules"],
                "summary": "Create a promotion rule version",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePromotionRuleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Term weights do not sum to 1", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/promotion-rules/{id}": {
            "get": {
                "tags": ["Promotion Rules"],
                "summary": "Get promotion rule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/promotion-rules/{id}/activate": {
            "post": {
                "tags": ["Promotion Rules"],
                "summary": "Activate a promotion rule version",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/promotions/preview": {
            "get": {
                "tags": ["Promotions"],
                "summary": "Preview promotion decisions for a class",
                "parameters": [
                    {"name": "classId", "in": "query", "required": true, "type": "string"},
                    {"name": "yearId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/promotions/execute": {
            "post": {
                "tags": ["Promotions"],
                "summary": "Execute promotion decisions for a class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExecutePromotionsRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "423": {"description": "Class is being processed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/promotions": {
            "get": {
                "tags": ["Promotions"],
                "summary": "Promotion history for a class",
                "parameters": [
                    {"name": "classId", "in": "query", "required": true, "type": "string"},
                    {"name": "yearId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/promotions/{id}/corrections": {
            "post": {
                "tags": ["Promotions"],
                "summary": "Correct a promotion decision",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CorrectPromotionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already superseded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ComputeResultsRequest": {
            "type": "object",
            "required": ["term_id", "class_id"],
            "properties": {
                "term_id": {"type": "string"},
                "class_id": {"type": "string"},
                "force": {"type": "boolean"}
            }
        },
        "PublishResultsRequest": {
            "type": "object",
            "required": ["term_id", "class_id", "action"],
            "properties": {
                "term_id": {"type": "string"},
                "class_id": {"type": "string"},
                "action": {"type": "string", "enum": ["publish", "unpublish"]}
            }
        },
        "UpdateRemarksRequest": {
            "type": "object",
            "properties": {
                "remarks": {"type": "string"}
            }
        },
        "GradeBand": {
            "type": "object",
            "properties": {
                "letter": {"type": "string"},
                "min_percent": {"type": "number"},
                "max_percent": {"type": "number"},
                "grade_point": {"type": "number"}
            }
        },
        "CreateGradeScaleRequest": {
            "type": "object",
            "required": ["name", "bands"],
            "properties": {
                "name": {"type": "string"},
                "is_default": {"type": "boolean"},
                "bands": {"type": "array", "items": {"$ref": "#/definitions/GradeBand"}}
            }
        },
        "CreatePromotionRuleRequest": {
            "type": "object",
            "required": ["from_level"],
            "properties": {
                "from_level": {"type": "string"},
                "to_level": {"type": "string"},
                "min_annual_average": {"type": "number"},
                "use_term_weights": {"type": "boolean"},
                "term_weights": {"type": "array", "items": {"type": "number"}},
                "require_core_subjects": {"type": "boolean"},
                "core_subject_ids": {"type": "array", "items": {"type": "string"}},
                "min_passed_subjects": {"type": "integer"},
                "min_subject_pass_percent": {"type": "number"},
                "min_attendance_percent": {"type": "number"},
                "conditional_band": {"type": "number"},
                "requires_approval": {"type": "boolean"},
                "activate": {"type": "boolean"}
            }
        },
        "PromotionOverride": {
            "type": "object",
            "required": ["student_id", "status", "reason"],
            "properties": {
                "student_id": {"type": "string"},
                "status": {"type": "string", "enum": ["PROMOTED", "REPEATED", "CONDITIONAL", "GRADUATED"]},
                "reason": {"type": "string"}
            }
        },
        "ExecutePromotionsRequest": {
            "type": "object",
            "required": ["class_id", "year_id"],
            "properties": {
                "class_id": {"type": "string"},
                "year_id": {"type": "string"},
                "overrides": {"type": "array", "items": {"$ref": "#/definitions/PromotionOverride"}}
            }
        },
        "CorrectPromotionRequest": {
            "type": "object",
            "required": ["status", "reason"],
            "properties": {
                "status": {"type": "string", "enum": ["PROMOTED", "REPEATED", "CONDITIONAL", "GRADUATED"]},
                "reason": {"type": "string"}
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
                "status": {"type": "integer"},
                "retryable": {"type": "boolean"}
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
