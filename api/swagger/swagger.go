package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Agenda API",
        "description": "Appointment scheduling with priority-based conflict resolution and slot search. All timestamps are RFC 3339; values without an offset are read as UTC and reported in meta.zone_assumed.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http"],
    "tags": [
        {"name": "Calendars", "description": "Calendars owned by an agent"},
        {"name": "Appointments", "description": "Scheduling, rescheduling, cancellation and batch updates"},
        {"name": "Slots", "description": "Free and override slot search"},
        {"name": "Days", "description": "Per-day utilization"},
        {"name": "Exports", "description": "CSV, PDF and iCalendar downloads"}
    ],
    "paths": {
        "/calendars": {
            "get": {
                "tags": ["Calendars"],
                "summary": "List calendars",
                "parameters": [
                    {"name": "agent_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Calendars"],
                "summary": "Create calendar",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCalendarRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/{calendarId}": {
            "get": {
                "tags": ["Calendars"],
                "summary": "Get calendar",
                "parameters": [{"$ref": "#/parameters/calendarId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Calendars"],
                "summary": "Update calendar",
                "parameters": [
                    {"$ref": "#/parameters/calendarId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCalendarRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/calendars/{calendarId}/availability": {
            "get": {
                "tags": ["Appointments"],
                "summary": "Check whether an interval is free",
                "parameters": [
                    {"$ref": "#/parameters/calendarId"},
                    {"name": "start", "in": "query", "required": true, "type": "string"},
                    {"name": "end", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/calendars/{calendarId}/appointments": {
            "get": {
                "tags": ["Appointments"],
                "summary": "List confirmed appointments",
                "parameters": [
                    {"$ref": "#/parameters/calendarId"},
                    {"name": "start", "in": "query", "type": "string", "description": "Defaults to the start of today"},
                    {"name": "end", "in": "query", "type": "string", "description": "Defaults to start plus seven days"},
                    {"name": "title", "in": "query", "type": "string"},
                    {"name": "priority", "in": "query", "type": "integer", "minimum": 1, "maximum": 5},
                    {"name": "type", "in": "query", "type": "string", "enum": ["client_meeting", "internal", "personal", "administrative", "other"]}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Appointments"],
                "summary": "Schedule an appointment, resolving conflicts by priority",
                "parameters": [
                    {"$ref": "#/parameters/calendarId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleAppointmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Scheduled or partial", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Rejected; data carries the rejected result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/{calendarId}/appointments/{id}": {
            "get": {
                "tags": ["Appointments"],
                "summary": "Get an appointment",
                "parameters": [{"$ref": "#/parameters/calendarId"}, {"$ref": "#/parameters/appointmentId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/{calendarId}/appointments/{id}/reschedule": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Move an appointment",
                "parameters": [
                    {"$ref": "#/parameters/calendarId"},
                    {"$ref": "#/parameters/appointmentId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleAppointmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Concurrent modification", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/{calendarId}/appointments/{id}/cancel": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Cancel an appointment; repeating the call succeeds",
                "parameters": [{"$ref": "#/parameters/calendarId"}, {"$ref": "#/parameters/appointmentId"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/calendars/{calendarId}/appointments/batch": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Apply independent partial updates in order",
                "parameters": [
                    {"$ref": "#/parameters/calendarId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchUpdateRequest"}}
                ],
                "responses": {"200": {"description": "updated, conflicts and failed items", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/calendars/{calendarId}/slots/search": {
            "post": {
                "tags": ["Slots"],
                "summary": "Search for free or override-eligible slots",
                "parameters": [
                    {"$ref": "#/parameters/calendarId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SlotSearchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Search budget exceeded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendars/{calendarId}/days": {
            "get": {
                "tags": ["Days"],
                "summary": "Per-day free time, busiest and most open day",
                "parameters": [
                    {"$ref": "#/parameters/calendarId"},
                    {"name": "from", "in": "query", "required": true, "type": "string"},
                    {"name": "to", "in": "query", "required": true, "type": "string"},
                    {"name": "working_start", "in": "query", "type": "string"},
                    {"name": "working_end", "in": "query", "type": "string"},
                    {"name": "underutilized_free_hours", "in": "query", "type": "number"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/calendars/{calendarId}/days/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the day report",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"$ref": "#/parameters/calendarId"},
                    {"name": "from", "in": "query", "required": true, "type": "string"},
                    {"name": "to", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/calendars/{calendarId}/appointments.ics": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download appointments as iCalendar",
                "produces": ["text/calendar"],
                "parameters": [
                    {"$ref": "#/parameters/calendarId"},
                    {"name": "start", "in": "query", "type": "string"},
                    {"name": "end", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "File"}}
            }
        }
    },
    "parameters": {
        "calendarId": {"name": "calendarId", "in": "path", "required": true, "type": "string"},
        "appointmentId": {"name": "id", "in": "path", "required": true, "type": "string"}
    },
    "definitions": {
        "CreateCalendarRequest": {
            "type": "object",
            "required": ["agent_id", "name"],
            "properties": {
                "agent_id": {"type": "string"},
                "name": {"type": "string"},
                "time_zone": {"type": "string", "example": "Europe/Athens"}
            }
        },
        "UpdateCalendarRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "time_zone": {"type": "string"}
            }
        },
        "ScheduleAppointmentRequest": {
            "type": "object",
            "required": ["title", "start", "duration_minutes", "priority"],
            "properties": {
                "title": {"type": "string"},
                "start": {"type": "string", "example": "2025-03-02T14:00:00Z"},
                "duration_minutes": {"type": "integer", "minimum": 1},
                "priority": {"type": "integer", "minimum": 1, "maximum": 5, "description": "1 is the most urgent"},
                "description": {"type": "string"},
                "location": {"type": "string"}
            }
        },
        "RescheduleAppointmentRequest": {
            "type": "object",
            "required": ["start"],
            "properties": {
                "start": {"type": "string"},
                "duration_minutes": {"type": "integer", "description": "0 keeps the current length"}
            }
        },
        "BatchUpdateItem": {
            "type": "object",
            "required": ["appointment_id"],
            "properties": {
                "appointment_id": {"type": "string"},
                "title": {"type": "string"},
                "start": {"type": "string"},
                "end": {"type": "string"},
                "priority": {"type": "integer"},
                "status": {"type": "string", "enum": ["confirmed", "cancelled"]},
                "description": {"type": "string"},
                "location": {"type": "string"},
                "expected_version": {"type": "integer"}
            }
        },
        "BatchUpdateRequest": {
            "type": "object",
            "properties": {
                "updates": {"type": "array", "items": {"$ref": "#/definitions/BatchUpdateItem"}}
            }
        },
        "SlotSearchRequest": {
            "type": "object",
            "required": ["window_start", "window_end", "duration_minutes"],
            "properties": {
                "window_start": {"type": "string"},
                "window_end": {"type": "string"},
                "duration_minutes": {"type": "integer"},
                "allow_override_below_priority": {"type": "integer", "description": "Slots may overlap appointments whose priority number exceeds this"},
                "max_results": {"type": "integer"},
                "ranking": {"type": "string", "enum": ["earliest", "day_openness"]},
                "working_hours_start": {"type": "string", "example": "09:00"},
                "working_hours_end": {"type": "string", "example": "17:00"}
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
                "code": {"type": "string", "enum": ["INVALID_TIME", "INVALID_APPOINTMENT", "NOT_FOUND", "CONCURRENT_MODIFICATION", "SEARCH_BUDGET_EXCEEDED", "VALIDATION_ERROR", "INTERNAL_ERROR"]},
                "message": {"type": "string"},
                "status": {"type": "integer"},
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
