package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/page-tracker/internal/httpjson"
)

// handleOpenAPI renvoie la description OpenAPI de l'API v1.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	jsonOK := func(schemaRef string) map[string]any {
		return map[string]any{
			"description": "OK",
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": schemaRef},
				},
			},
		}
	}

	jsonBody := func(schemaRef string) map[string]any {
		return map[string]any{
			"required": true,
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": schemaRef},
				},
			},
		}
	}

	jsonErr := map[string]any{
		"description": "Error",
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/Error"},
			},
		},
	}

	trackingOp := func(okStatus string) map[string]any {
		return map[string]any{
			"post": map[string]any{
				"responses": map[string]any{
					okStatus: jsonOK("#/components/schemas/Tracking"),
					"404":    jsonErr,
					"500":    jsonErr,
				},
			},
		}
	}

	intSchema := func(min int) map[string]any {
		return map[string]any{"type": "integer", "minimum": min}
	}

	spec := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "Page Tracker API",
			"version": "v1",
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"OpenAPIDocument": map[string]any{
					"type":                 "object",
					"additionalProperties": true,
				},
				"Error": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"error": map[string]any{"type": "string"},
						"code":  map[string]any{"type": "string", "description": "Code stable (invalid_url, invalid_interval, invalid_message, unknown_action...)."},
					},
					"required": []any{"error"},
				},
				"Settings": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"snapshotDir":        map[string]any{"type": "string"},
						"saveSnapshotFiles":  map[string]any{"type": "boolean"},
						"maxConcurrentLoads": intSchema(1),
						"settleDelayMs":      intSchema(0),
						"captureDelayMs":     intSchema(0),
						"defaultMinInterval": intSchema(1),
						"defaultMaxInterval": intSchema(1),
						"webhookUrl":         map[string]any{"type": "string"},
						"respectRobots":      map[string]any{"type": "boolean"},
					},
					"additionalProperties": false,
				},
				"Snapshot": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"timestamp": map[string]any{"type": "integer", "format": "int64", "description": "Epoch en millisecondes."},
						"url":       map[string]any{"type": "string"},
						"imagePath": map[string]any{"type": "string"},
					},
					"required": []any{"timestamp", "url", "imagePath"},
				},
				"SnapshotList": map[string]any{
					"type":     "array",
					"maxItems": 20,
					"items":    map[string]any{"$ref": "#/components/schemas/Snapshot"},
				},
				"Tracking": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":              map[string]any{"type": "string"},
						"url":             map[string]any{"type": "string"},
						"name":            map[string]any{"type": "string"},
						"isTracking":      map[string]any{"type": "boolean"},
						"active":          map[string]any{"type": "boolean", "description": "Timers armés dans ce processus."},
						"minInterval":     intSchema(1),
						"maxInterval":     intSchema(1),
						"lastContentHash": map[string]any{"type": "string"},
						"timeLeft":        map[string]any{"type": "integer", "nullable": true},
						"changeCount":     intSchema(0),
						"lastRefresh":     map[string]any{"type": "integer", "format": "int64", "nullable": true},
						"snapshots":       map[string]any{"$ref": "#/components/schemas/SnapshotList"},
					},
					"required": []any{"id", "url", "name", "isTracking", "minInterval", "maxInterval", "changeCount", "snapshots"},
				},
				"TrackingList": map[string]any{
					"type":  "array",
					"items": map[string]any{"$ref": "#/components/schemas/Tracking"},
				},
				"CreateTrackingRequest": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"url":         map[string]any{"type": "string", "example": "https://example.com/prices"},
						"name":        map[string]any{"type": "string"},
						"minInterval": intSchema(1),
						"maxInterval": intSchema(1),
						"start":       map[string]any{"type": "boolean"},
					},
					"required": []any{"url"},
				},
				"UpdateTrackingRequest": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"url":         map[string]any{"type": "string"},
						"name":        map[string]any{"type": "string"},
						"minInterval": intSchema(1),
						"maxInterval": intSchema(1),
						"isTracking":  map[string]any{"type": "boolean"},
					},
				},
				"Message": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"action":     map[string]any{"type": "string", "enum": []any{"START_TRACKING", "STOP_TRACKING", "REFRESH_NOW", "CONTENT_CHANGED", "CHANGE_DETECTED"}},
						"trackingId": map[string]any{"type": "string"},
						"url":        map[string]any{"type": "string"},
						"min":        intSchema(1),
						"max":        intSchema(1),
					},
					"required": []any{"action", "trackingId"},
				},
			},
		},
		"paths": map[string]any{
			"/api/v1/health": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/version": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/openapi.json": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK("#/components/schemas/OpenAPIDocument")}},
			},
			"/api/v1/events": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "SSE (tracking.*, page.refreshed, snapshot.saved, CHANGE_DETECTED, notification)"}}},
			},
			"/api/v1/trackings": map[string]any{
				"get": map[string]any{
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/TrackingList"),
						"500": jsonErr,
					},
				},
				"post": map[string]any{
					"requestBody": jsonBody("#/components/schemas/CreateTrackingRequest"),
					"responses": map[string]any{
						"201": jsonOK("#/components/schemas/Tracking"),
						"400": jsonErr,
						"409": jsonErr,
						"500": jsonErr,
					},
				},
			},
			"/api/v1/trackings/import": map[string]any{
				"post": map[string]any{
					"description": "Tableau de CreateTrackingRequest; les URLs déjà suivies sont ignorées.",
					"responses": map[string]any{
						"200": map[string]any{"description": "{\"created\": n}"},
						"400": jsonErr,
					},
				},
			},
			"/api/v1/trackings/migrate-legacy": map[string]any{
				"post": map[string]any{
					"description": "Ancien format à tracking unique {isTracking, currentTrackedUrl, changeCount, snapshots}; registre vide uniquement.",
					"responses": map[string]any{
						"201": jsonOK("#/components/schemas/Tracking"),
						"400": jsonErr,
						"409": jsonErr,
					},
				},
			},
			"/api/v1/trackings/{id}": map[string]any{
				"get": map[string]any{
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Tracking"),
						"404": jsonErr,
					},
				},
				"patch": map[string]any{
					"requestBody": jsonBody("#/components/schemas/UpdateTrackingRequest"),
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Tracking"),
						"400": jsonErr,
						"404": jsonErr,
						"409": jsonErr,
					},
				},
				"delete": map[string]any{
					"responses": map[string]any{
						"204": map[string]any{"description": "Deleted"},
						"404": jsonErr,
					},
				},
			},
			"/api/v1/trackings/{id}/start":   trackingOp("200"),
			"/api/v1/trackings/{id}/stop":    trackingOp("200"),
			"/api/v1/trackings/{id}/refresh": trackingOp("202"),
			"/api/v1/trackings/{id}/snapshots": map[string]any{
				"get": map[string]any{
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/SnapshotList"),
						"404": jsonErr,
					},
				},
				"delete": map[string]any{
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Tracking"),
						"404": jsonErr,
					},
				},
			},
			"/api/v1/trackings/{id}/snapshots/{timestamp}.png": map[string]any{
				"get": map[string]any{
					"responses": map[string]any{
						"200": map[string]any{"description": "PNG", "content": map[string]any{"image/png": map[string]any{}}},
						"404": jsonErr,
					},
				},
			},
			"/api/v1/messages": map[string]any{
				"post": map[string]any{
					"requestBody": jsonBody("#/components/schemas/Message"),
					"responses": map[string]any{
						"202": map[string]any{"description": "Accepted"},
						"400": jsonErr,
						"500": jsonErr,
					},
				},
			},
			"/api/v1/settings": map[string]any{
				"get": map[string]any{
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Settings"),
						"500": jsonErr,
					},
				},
				"put": map[string]any{
					"requestBody": jsonBody("#/components/schemas/Settings"),
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Settings"),
						"400": jsonErr,
						"500": jsonErr,
					},
				},
			},
		},
	}

	httpjson.Write(w, http.StatusOK, spec)
}
