package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Energy Market Data API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Energy Market Data API",
			"description": "Energy market time series acquisition platform with PostgreSQL persistence, resumable backfill, and a REST read API",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Energy Data Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/v1/records": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get energy data records",
					"description": "Retrieve canonical energy time series records with filtering and pagination",
					"parameters": []map[string]interface{}{
						{
							"name":        "area",
							"in":          "query",
							"description": "Filter by market area code (e.g. DE, FR)",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "data_type",
							"in":          "query",
							"description": "Filter by data type (load, generation, day_ahead_price)",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "from",
							"in":          "query",
							"description": "Filter by inclusive start timestamp (RFC 3339)",
							"required":    false,
							"schema":      map[string]string{"type": "string", "format": "date-time"},
						},
						{
							"name":        "to",
							"in":          "query",
							"description": "Filter by exclusive end timestamp (RFC 3339)",
							"required":    false,
							"schema":      map[string]string{"type": "string", "format": "date-time"},
						},
						{
							"name":        "page",
							"in":          "query",
							"description": "Page number (default: 1)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "default": 1},
						},
						{
							"name":        "limit",
							"in":          "query",
							"description": "Records per page (default: 100)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "default": 100},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"data": map[string]interface{}{
												"type": "array",
												"items": map[string]interface{}{
													"type": "object",
													"properties": map[string]interface{}{
														"id":            map[string]string{"type": "integer"},
														"ts":            map[string]string{"type": "string", "format": "date-time"},
														"area":          map[string]string{"type": "string"},
														"data_type":     map[string]string{"type": "string"},
														"business_type": map[string]string{"type": "string"},
														"quantity":      map[string]string{"type": "number"},
														"unit":          map[string]string{"type": "string"},
														"source":        map[string]string{"type": "string"},
														"resolution":    map[string]string{"type": "string"},
														"curve_type":    map[string]string{"type": "string"},
														"document_id":   map[string]string{"type": "string"},
														"revision":      map[string]string{"type": "integer"},
														"created_at":    map[string]string{"type": "string", "format": "date-time"},
													},
												},
											},
											"total":       map[string]string{"type": "integer"},
											"page":        map[string]string{"type": "integer"},
											"limit":       map[string]string{"type": "integer"},
											"total_pages": map[string]string{"type": "integer"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/v1/backfill": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get backfill progress",
					"description": "Retrieve the persisted backfill cursor for every (area, data type) pair",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"data": map[string]interface{}{
												"type": "array",
												"items": map[string]interface{}{
													"type": "object",
													"properties": map[string]interface{}{
														"area":            map[string]string{"type": "string"},
														"data_type":       map[string]string{"type": "string"},
														"cursor":          map[string]string{"type": "string", "format": "date-time"},
														"status":          map[string]string{"type": "string"},
														"records_written": map[string]string{"type": "integer"},
														"updated_at":      map[string]string{"type": "string", "format": "date-time"},
													},
												},
											},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/v1/areas": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List supported areas",
					"description": "List the market areas the platform can collect, with their EIC codes",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"data": map[string]interface{}{
												"type": "array",
												"items": map[string]interface{}{
													"type": "object",
													"properties": map[string]interface{}{
														"code": map[string]string{"type": "string"},
														"eic":  map[string]string{"type": "string"},
														"name": map[string]string{"type": "string"},
														"types": map[string]interface{}{
															"type":  "array",
															"items": map[string]string{"type": "string"},
														},
													},
												},
											},
										},
									},
								},
							},
						},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API and its database are healthy",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "API is healthy",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"status": map[string]string{"type": "string"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
