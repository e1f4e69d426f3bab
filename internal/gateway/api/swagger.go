package api

// apiDocsHTML loads Swagger UI from a CDN against /swagger.json.
const apiDocsHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>DENM Gateway API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = () => {
      SwaggerUIBundle({ url: "/swagger.json", dom_id: "#swagger-ui" });
    };
  </script>
</body>
</html>
`

// swaggerDoc describes the POST ingress. Informational; the envelope schema
// is validated by the interchange, not by the HTTP layer.
const swaggerDoc = `{
  "openapi": "3.0.3",
  "info": {
    "title": "DENM Gateway",
    "description": "Publish DENM road-safety messages to a C-ITS interchange and receive them over WebSocket.",
    "version": "1.0.0"
  },
  "paths": {
    "/denm": {
      "post": {
        "summary": "Publish a DENM",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": { "$ref": "#/components/schemas/Envelope" }
            }
          }
        },
        "responses": {
          "200": {
            "description": "Accepted for publish",
            "content": {
              "application/json": {
                "schema": {
                  "type": "object",
                  "properties": { "status": { "type": "string", "example": "success" } }
                }
              }
            }
          },
          "400": {
            "description": "Malformed JSON",
            "content": {
              "application/json": {
                "schema": {
                  "type": "object",
                  "properties": { "error": { "type": "string", "example": "Invalid JSON" } }
                }
              }
            }
          }
        }
      }
    },
    "/healthz": {
      "get": {
        "summary": "Liveness probe",
        "responses": { "200": { "description": "Service is up" } }
      }
    }
  },
  "components": {
    "schemas": {
      "Envelope": {
        "type": "object",
        "required": ["publisherId", "originatingCountry", "latitude", "longitude", "data"],
        "properties": {
          "publisherId": { "type": "string", "example": "NO00001" },
          "originatingCountry": { "type": "string", "example": "NO" },
          "latitude": { "type": "number", "example": 57.779017 },
          "longitude": { "type": "number", "example": 12.774981 },
          "quadTree": { "type": "string" },
          "shardId": { "type": "integer" },
          "shardCount": { "type": "integer" },
          "timestamp": { "type": "integer" },
          "relation": { "type": "string" },
          "data": { "$ref": "#/components/schemas/Denm" }
        }
      },
      "Denm": {
        "type": "object",
        "required": ["header", "management"],
        "properties": {
          "header": {
            "type": "object",
            "required": ["stationId"],
            "properties": {
              "protocolVersion": { "type": "integer", "example": 2 },
              "messageId": { "type": "integer", "example": 1 },
              "stationId": { "type": "integer", "example": 1234567 }
            }
          },
          "management": {
            "type": "object",
            "properties": {
              "actionId": {
                "type": "object",
                "properties": {
                  "originatingStationId": { "type": "integer" },
                  "sequenceNumber": { "type": "integer" }
                }
              },
              "detectionTime": { "type": "string", "example": "2024-03-01 12:30:45 UTC" },
              "referenceTime": { "type": "string", "example": "2024-03-01 12:30:45 UTC" },
              "eventPosition": {
                "type": "object",
                "properties": {
                  "latitude": { "type": "number" },
                  "longitude": { "type": "number" },
                  "altitude": { "type": "number" }
                }
              },
              "relevanceDistance": { "type": "string", "example": "lessThan50m" },
              "relevanceTrafficDirection": { "type": "string", "example": "allTrafficDirections" },
              "validityDuration": { "type": "integer", "example": 600 },
              "stationType": { "type": "integer", "example": 3 }
            }
          },
          "situation": {
            "type": "object",
            "properties": {
              "informationQuality": { "type": "integer" },
              "causeCode": { "type": "integer", "example": 2 },
              "subCauseCode": { "type": "integer" }
            }
          }
        }
      }
    }
  }
}`
