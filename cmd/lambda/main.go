package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/dvloznov/ocr-ledger/internal/api/handlers"
	"github.com/dvloznov/ocr-ledger/internal/app"
	"github.com/dvloznov/ocr-ledger/internal/config"
	"github.com/dvloznov/ocr-ledger/internal/logger"
	"github.com/rs/zerolog"
)

// Handler serves API Gateway HTTP API events with the same bodies as the
// HTTP server: GET runs the demo, POST processes {text}.
type Handler struct {
	processor handlers.TextProcessor
	demo      handlers.DemoExtractor
	log       zerolog.Logger
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log := h.log.With().
		Str("request_id", req.RequestContext.RequestID).
		Str("route", req.RouteKey).
		Logger()
	ctx = logger.WithContext(ctx, log)

	switch req.RequestContext.HTTP.Method {
	case http.MethodGet:
		parsed, err := h.demo.Demo(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Demo extraction failed")
			return errorResponse(handlers.StatusForError(err), err.Error()), nil
		}
		return jsonResponse(http.StatusOK, parsed), nil

	case http.MethodPost:
		body := req.Body
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(body)
			if err != nil {
				return errorResponse(http.StatusBadRequest, "Invalid request body"), nil
			}
			body = string(decoded)
		}

		var in handlers.OCRRequest
		if err := json.Unmarshal([]byte(body), &in); err != nil {
			return errorResponse(http.StatusBadRequest, "Invalid request body"), nil
		}
		if strings.TrimSpace(in.Text) == "" {
			return errorResponse(http.StatusBadRequest, "text is required"), nil
		}

		result, err := h.processor.Process(ctx, in.Text)
		if err != nil {
			log.Error().Err(err).Msg("Failed to process OCR text")
			return errorResponse(handlers.StatusForError(err), err.Error()), nil
		}
		return jsonResponse(http.StatusOK, result), nil

	default:
		return errorResponse(http.StatusMethodNotAllowed, "Method not allowed"), nil
	}
}

func jsonResponse(status int, v any) events.APIGatewayV2HTTPResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal server error"}`)
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func errorResponse(status int, message string) events.APIGatewayV2HTTPResponse {
	return jsonResponse(status, map[string]string{"error": message})
}

func main() {
	cfg := config.Load()
	log := logger.NewFromConfig(cfg.Logger.Level, logger.FormatJSON, os.Stdout)

	a, err := app.New(logger.WithContext(context.Background(), log), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	h := &Handler{processor: a.Processor, demo: a.Extraction, log: log}
	lambda.Start(h.Handle)
}
