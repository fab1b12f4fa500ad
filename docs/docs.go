// Package docs holds the OpenAPI document served under /swagger/.
// Regenerate with: swag init -g cmd/api/main.go
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
        "/events": {
            "get": {
                "tags": [
                    "events"
                ],
                "summary": "List events",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "type": "array",
                                    "items": {
                                        "$ref": "#/definitions/domain.Event"
                                    }
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "enum": [
                            "DRAFT",
                            "ACTIVE",
                            "CANCELLED",
                            "COMPLETED"
                        ],
                        "type": "string",
                        "description": "Event status filter",
                        "name": "status",
                        "in": "query"
                    }
                ]
            },
            "post": {
                "tags": [
                    "events"
                ],
                "summary": "Create a new event",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.Event"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Event data",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/controllers.EventRequest"
                        }
                    }
                ]
            }
        },
        "/events/upcoming": {
            "get": {
                "tags": [
                    "events"
                ],
                "summary": "List upcoming events",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "type": "array",
                                    "items": {
                                        "$ref": "#/definitions/domain.Event"
                                    }
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                }
            }
        },
        "/events/{eventID}": {
            "get": {
                "tags": [
                    "events"
                ],
                "summary": "Get an event by ID",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.Event"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Event ID (UUID)",
                        "name": "eventID",
                        "in": "path",
                        "required": true
                    }
                ]
            },
            "put": {
                "tags": [
                    "events"
                ],
                "summary": "Update an event",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.Event"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "503": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Event ID (UUID)",
                        "name": "eventID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Event data",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/controllers.EventRequest"
                        }
                    }
                ]
            },
            "delete": {
                "tags": [
                    "events"
                ],
                "summary": "Delete an event",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Event ID (UUID)",
                        "name": "eventID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/events/{eventID}/availability": {
            "get": {
                "tags": [
                    "events"
                ],
                "summary": "Get event availability",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.EventAvailability"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Event ID (UUID)",
                        "name": "eventID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/events/{eventID}/cancel": {
            "patch": {
                "tags": [
                    "events"
                ],
                "summary": "Cancel an event",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.Event"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Event ID (UUID)",
                        "name": "eventID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/events/{eventID}/reconcile": {
            "post": {
                "tags": [
                    "events"
                ],
                "summary": "Recompute an event's attendee counter",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.Event"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "503": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Event ID (UUID)",
                        "name": "eventID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/participants": {
            "get": {
                "tags": [
                    "participants"
                ],
                "summary": "List participants",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "type": "array",
                                    "items": {
                                        "$ref": "#/definitions/domain.Participant"
                                    }
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "enum": [
                            "ACTIVE",
                            "INACTIVE",
                            "BLOCKED"
                        ],
                        "type": "string",
                        "description": "Participant status filter",
                        "name": "status",
                        "in": "query"
                    }
                ]
            },
            "post": {
                "tags": [
                    "participants"
                ],
                "summary": "Create a participant",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.Participant"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "409": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Participant data",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/controllers.ParticipantRequest"
                        }
                    }
                ]
            }
        },
        "/participants/email/{email}": {
            "get": {
                "tags": [
                    "participants"
                ],
                "summary": "Get a participant by email",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.Participant"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Participant email",
                        "name": "email",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/participants/{participantID}": {
            "get": {
                "tags": [
                    "participants"
                ],
                "summary": "Get a participant by ID",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.Participant"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Participant ID (UUID)",
                        "name": "participantID",
                        "in": "path",
                        "required": true
                    }
                ]
            },
            "put": {
                "tags": [
                    "participants"
                ],
                "summary": "Update a participant",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.Participant"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "409": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Participant ID (UUID)",
                        "name": "participantID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Participant data",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/controllers.ParticipantRequest"
                        }
                    }
                ]
            },
            "delete": {
                "tags": [
                    "participants"
                ],
                "summary": "Delete a participant",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Participant ID (UUID)",
                        "name": "participantID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/participants/{participantID}/status": {
            "patch": {
                "tags": [
                    "participants"
                ],
                "summary": "Change a participant's status",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.Participant"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Participant ID (UUID)",
                        "name": "participantID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "New status",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/controllers.UpdateParticipantStatusRequest"
                        }
                    }
                ]
            }
        },
        "/attendances": {
            "post": {
                "tags": [
                    "attendances"
                ],
                "summary": "Register a participant for an event",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.Attendance"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "409": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "503": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Event and participant IDs",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/controllers.RegisterAttendanceRequest"
                        }
                    }
                ]
            }
        },
        "/attendances/{attendanceID}": {
            "get": {
                "tags": [
                    "attendances"
                ],
                "summary": "Get an attendance by ID",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.Attendance"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Attendance ID (UUID)",
                        "name": "attendanceID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/attendances/{attendanceID}/check-in": {
            "patch": {
                "tags": [
                    "attendances"
                ],
                "summary": "Check in an attendance",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.Attendance"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "503": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Attendance ID (UUID)",
                        "name": "attendanceID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/attendances/{attendanceID}/cancel": {
            "patch": {
                "tags": [
                    "attendances"
                ],
                "summary": "Cancel an attendance",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.Attendance"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "503": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Attendance ID (UUID)",
                        "name": "attendanceID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/attendances/event/{eventID}": {
            "get": {
                "tags": [
                    "attendances"
                ],
                "summary": "List the attendances of an event",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "type": "array",
                                    "items": {
                                        "$ref": "#/definitions/domain.Attendance"
                                    }
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Event ID (UUID)",
                        "name": "eventID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/attendances/event/{eventID}/statistics": {
            "get": {
                "tags": [
                    "attendances"
                ],
                "summary": "Get attendance statistics of an event",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "$ref": "#/definitions/domain.EventStatistics"
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Event ID (UUID)",
                        "name": "eventID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/attendances/participant/{participantID}": {
            "get": {
                "tags": [
                    "attendances"
                ],
                "summary": "List the attendances of a participant",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "data": {
                                    "type": "array",
                                    "items": {
                                        "$ref": "#/definitions/domain.Attendance"
                                    }
                                },
                                "error": {
                                    "$ref": "#/definitions/helpers.APIError"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "404": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    },
                    "500": {
                        "description": "error envelope",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Participant ID (UUID)",
                        "name": "participantID",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/health": {
            "get": {
                "tags": [
                    "health"
                ],
                "summary": "Liveness probe",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/helpers.APIResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "helpers.APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "helpers.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {
                    "$ref": "#/definitions/helpers.APIError"
                }
            }
        },
        "domain.Event": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "location": {
                    "type": "string"
                },
                "start_date": {
                    "type": "string",
                    "format": "date-time"
                },
                "end_date": {
                    "type": "string",
                    "format": "date-time"
                },
                "capacity": {
                    "type": "integer"
                },
                "current_attendees": {
                    "type": "integer"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "DRAFT",
                        "ACTIVE",
                        "CANCELLED",
                        "COMPLETED"
                    ]
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "updated_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "domain.EventAvailability": {
            "type": "object",
            "properties": {
                "event_id": {
                    "type": "string"
                },
                "capacity": {
                    "type": "integer"
                },
                "current_attendees": {
                    "type": "integer"
                },
                "remaining_capacity": {
                    "type": "integer"
                },
                "has_available_spots": {
                    "type": "boolean"
                }
            }
        },
        "domain.Participant": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "first_name": {
                    "type": "string"
                },
                "last_name": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "phone": {
                    "type": "string"
                },
                "document_number": {
                    "type": "string"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "ACTIVE",
                        "INACTIVE",
                        "BLOCKED"
                    ]
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "updated_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "domain.Attendance": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "event_id": {
                    "type": "string"
                },
                "participant_id": {
                    "type": "string"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "REGISTERED",
                        "CHECKED_IN",
                        "CANCELLED",
                        "NO_SHOW"
                    ]
                },
                "registration_date": {
                    "type": "string",
                    "format": "date-time"
                },
                "check_in_date": {
                    "type": "string",
                    "format": "date-time"
                },
                "notes": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "updated_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "domain.EventStatistics": {
            "type": "object",
            "properties": {
                "event_id": {
                    "type": "string"
                },
                "total_capacity": {
                    "type": "integer"
                },
                "total_registered": {
                    "type": "integer"
                },
                "total_checked_in": {
                    "type": "integer"
                },
                "total_cancelled": {
                    "type": "integer"
                },
                "total_no_show": {
                    "type": "integer"
                },
                "available_spots": {
                    "type": "integer"
                },
                "occupancy_percentage": {
                    "type": "number"
                }
            }
        },
        "controllers.EventRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "location": {
                    "type": "string"
                },
                "start_date": {
                    "type": "string",
                    "format": "date-time"
                },
                "end_date": {
                    "type": "string",
                    "format": "date-time"
                },
                "capacity": {
                    "type": "integer"
                }
            }
        },
        "controllers.ParticipantRequest": {
            "type": "object",
            "properties": {
                "first_name": {
                    "type": "string"
                },
                "last_name": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "phone": {
                    "type": "string"
                },
                "document_number": {
                    "type": "string"
                }
            }
        },
        "controllers.UpdateParticipantStatusRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "ACTIVE",
                        "INACTIVE",
                        "BLOCKED"
                    ]
                }
            }
        },
        "controllers.RegisterAttendanceRequest": {
            "type": "object",
            "properties": {
                "event_id": {
                    "type": "string"
                },
                "participant_id": {
                    "type": "string"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "eventcore API",
	Description:      "Events, participants and attendances with capacity-safe registration.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
