package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) getOpenAPISpec(c echo.Context) error {
	return c.JSONBlob(http.StatusOK, []byte(OpenAPISpec))
}

// OpenAPISpec is the API contract served at /openapi.json. Kept as a
// literal so the document ships inside the binary.
const OpenAPISpec = `{
  "openapi": "3.0.3",
  "info": {
    "title": "MailCouncil API",
    "description": "Agentic team debates over triaged emails and ad-hoc queries.",
    "version": "0.1.0"
  },
  "security": [
    {"bearerAuth": []},
    {"apiKeyAuth": []}
  ],
  "paths": {
    "/health": {
      "get": {
        "summary": "Liveness probe",
        "security": [],
        "responses": {
          "200": {
            "description": "Service is up",
            "content": {
              "application/json": {
                "schema": {
                  "type": "object",
                  "properties": {"status": {"type": "string"}}
                }
              }
            }
          }
        }
      }
    },
    "/metrics": {
      "get": {
        "summary": "Prometheus metrics",
        "security": [],
        "responses": {
          "200": {
            "description": "Metrics in Prometheus text exposition format",
            "content": {"text/plain": {"schema": {"type": "string"}}}
          }
        }
      }
    },
    "/openapi.json": {
      "get": {
        "summary": "This document",
        "security": [],
        "responses": {
          "200": {
            "description": "OpenAPI document",
            "content": {"application/json": {"schema": {"type": "object"}}}
          }
        }
      }
    },
    "/api/v1/debates": {
      "post": {
        "summary": "Submit a work item for debate",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {"$ref": "#/components/schemas/CreateDebateRequest"}
            }
          }
        },
        "responses": {
          "202": {
            "description": "Debate accepted and started",
            "content": {
              "application/json": {
                "schema": {
                  "type": "object",
                  "properties": {"task_id": {"type": "string"}}
                }
              }
            }
          },
          "400": {
            "description": "Malformed submission",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}
          },
          "404": {
            "description": "Unknown team key",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}
          }
        }
      },
      "get": {
        "summary": "List debate tasks",
        "responses": {
          "200": {
            "description": "Task summaries, most recent first",
            "content": {
              "application/json": {
                "schema": {
                  "type": "array",
                  "items": {"$ref": "#/components/schemas/TaskSummary"}
                }
              }
            }
          }
        }
      }
    },
    "/api/v1/debates/{id}": {
      "get": {
        "summary": "Fetch one debate task with its transcript",
        "parameters": [
          {
            "name": "id",
            "in": "path",
            "required": true,
            "schema": {"type": "string"}
          }
        ],
        "responses": {
          "200": {
            "description": "Full task record",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Task"}}}
          },
          "404": {
            "description": "Unknown task id",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}
          }
        }
      }
    },
    "/api/v1/debates/{id}/cancel": {
      "post": {
        "summary": "Request cooperative cancellation of a running debate",
        "parameters": [
          {
            "name": "id",
            "in": "path",
            "required": true,
            "schema": {"type": "string"}
          }
        ],
        "responses": {
          "202": {
            "description": "Cancellation requested; the task fails after its current turn",
            "content": {
              "application/json": {
                "schema": {
                  "type": "object",
                  "properties": {"status": {"type": "string"}}
                }
              }
            }
          },
          "404": {
            "description": "Unknown task id",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}
          },
          "409": {
            "description": "Task already finished",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}
          }
        }
      }
    },
    "/api/v1/teams": {
      "get": {
        "summary": "List configured teams",
        "responses": {
          "200": {
            "description": "Team catalog in definition order",
            "content": {
              "application/json": {
                "schema": {
                  "type": "array",
                  "items": {"$ref": "#/components/schemas/Team"}
                }
              }
            }
          }
        }
      }
    },
    "/api/v1/teams/{key}": {
      "get": {
        "summary": "Fetch one team definition",
        "parameters": [
          {
            "name": "key",
            "in": "path",
            "required": true,
            "schema": {"type": "string"}
          }
        ],
        "responses": {
          "200": {
            "description": "Team definition",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Team"}}}
          },
          "404": {
            "description": "Unknown team key",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}
          }
        }
      }
    },
    "/api/v1/events": {
      "get": {
        "summary": "Live debate events over Server-Sent Events",
        "description": "One stream carries every task's events. Each SSE event name is the event type (agent_message, debate_complete, debate_error) and the data line is an EventData object; filter on data.task_id. Clients that cannot set headers may pass the JWT as an access_token query parameter.",
        "parameters": [
          {
            "name": "access_token",
            "in": "query",
            "required": false,
            "schema": {"type": "string"}
          }
        ],
        "responses": {
          "200": {
            "description": "SSE stream",
            "content": {"text/event-stream": {"schema": {"type": "string"}}}
          }
        }
      }
    },
    "/api/v1/events/ws": {
      "get": {
        "summary": "Live debate events over WebSocket",
        "description": "Each frame is one JSON Event envelope. The connection upgrades from this GET.",
        "parameters": [
          {
            "name": "access_token",
            "in": "query",
            "required": false,
            "schema": {"type": "string"}
          }
        ],
        "responses": {
          "101": {
            "description": "Switching protocols"
          }
        }
      }
    }
  },
  "components": {
    "securitySchemes": {
      "bearerAuth": {
        "type": "http",
        "scheme": "bearer",
        "bearerFormat": "JWT"
      },
      "apiKeyAuth": {
        "type": "apiKey",
        "in": "header",
        "name": "X-API-Key"
      }
    },
    "schemas": {
      "Error": {
        "type": "object",
        "properties": {
          "message": {"type": "string"}
        }
      },
      "Signal": {
        "type": "object",
        "properties": {
          "model": {"type": "string"},
          "label": {"type": "string"},
          "score": {"type": "number", "format": "double"}
        }
      },
      "Email": {
        "type": "object",
        "properties": {
          "subject": {"type": "string"},
          "sender": {"type": "string"},
          "body": {"type": "string"},
          "signals": {
            "type": "array",
            "items": {"$ref": "#/components/schemas/Signal"}
          }
        }
      },
      "WorkItem": {
        "type": "object",
        "properties": {
          "source_id": {"type": "string"},
          "kind": {"type": "string", "enum": ["email", "query"]},
          "email": {"$ref": "#/components/schemas/Email"},
          "query": {"type": "string"}
        }
      },
      "Message": {
        "type": "object",
        "properties": {
          "sequence": {"type": "integer"},
          "round": {"type": "integer"},
          "role": {"type": "string"},
          "icon": {"type": "string"},
          "content": {"type": "string"},
          "thinking": {"type": "boolean"},
          "timestamp": {"type": "string", "format": "date-time"}
        }
      },
      "Decision": {
        "type": "object",
        "properties": {
          "summary": {"type": "string"},
          "action_items": {
            "type": "array",
            "items": {"type": "string"}
          },
          "decided_by": {"type": "string"}
        }
      },
      "Task": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "team": {"type": "string"},
          "work_item": {"$ref": "#/components/schemas/WorkItem"},
          "status": {"type": "string", "enum": ["pending", "running", "completed", "failed"]},
          "messages": {
            "type": "array",
            "items": {"$ref": "#/components/schemas/Message"}
          },
          "decision": {"$ref": "#/components/schemas/Decision"},
          "error": {"type": "string"},
          "created_at": {"type": "string", "format": "date-time"},
          "updated_at": {"type": "string", "format": "date-time"}
        }
      },
      "TaskSummary": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "team": {"type": "string"},
          "status": {"type": "string", "enum": ["pending", "running", "completed", "failed"]},
          "message_count": {"type": "integer"},
          "has_decision": {"type": "boolean"},
          "created_at": {"type": "string", "format": "date-time"},
          "updated_at": {"type": "string", "format": "date-time"}
        }
      },
      "AgentRole": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "icon": {"type": "string"},
          "persona": {"type": "string"},
          "responsibility": {"type": "string"},
          "decision_maker": {"type": "boolean"}
        }
      },
      "Team": {
        "type": "object",
        "properties": {
          "key": {"type": "string"},
          "name": {"type": "string"},
          "mission": {"type": "string"},
          "roles": {
            "type": "array",
            "items": {"$ref": "#/components/schemas/AgentRole"}
          }
        }
      },
      "EventData": {
        "type": "object",
        "properties": {
          "task_id": {"type": "string"},
          "role": {"type": "string"},
          "message": {"$ref": "#/components/schemas/Message"},
          "decision": {"$ref": "#/components/schemas/Decision"},
          "reason": {"type": "string"}
        }
      },
      "Event": {
        "type": "object",
        "properties": {
          "type": {"type": "string", "enum": ["agent_message", "debate_complete", "debate_error"]},
          "data": {"$ref": "#/components/schemas/EventData"}
        }
      },
      "CreateDebateRequest": {
        "type": "object",
        "required": ["team"],
        "properties": {
          "team": {"type": "string"},
          "source_id": {"type": "string"},
          "email": {"$ref": "#/components/schemas/Email"},
          "query": {"type": "string"}
        }
      }
    }
  }
}`
