package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/scam-honeypot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/scam-honeypot/internal/config"
	"github.com/wolfman30/scam-honeypot/internal/honeypot"
	httpmiddleware "github.com/wolfman30/scam-honeypot/internal/http/middleware"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

// app serves one warm container. Sessions live as long as it does.
type app struct {
	service honeypot.Service
	// drain blocks until pending report dispatches finish; the runtime
	// freezes the container as soon as the handler returns.
	drain   func()
	apiKey  string
	logger  *logging.Logger
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	hp, err := bootstrap.BuildHoneypot(context.Background(), cfg, prometheus.NewRegistry(), logger)
	if err != nil {
		panic(err)
	}

	a := &app{service: hp.Orchestrator, drain: hp.Orchestrator.Wait, apiKey: cfg.APIKey, logger: logger}
	lambda.Start(a.handle)
}

func (a *app) handle(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	switch path {
	case "/health", "/api/health":
		return jsonResponse(http.StatusOK, map[string]string{"status": "healthy"}), nil
	case "/honeypot/message", "/api/honeypot/message":
	default:
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}

	if method == http.MethodGet {
		return jsonResponse(http.StatusOK, map[string]string{"message": "Honeypot API - POST to this endpoint"}), nil
	}
	if method != http.MethodPost {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
	}

	if err := httpmiddleware.CheckAPIKey(a.apiKey, headerValue(evt.Headers, httpmiddleware.APIKeyHeader)); err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusUnauthorized, Body: err.Error()}, nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}
	req, err := honeypot.DecodeMessageRequest(body)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: err.Error()}, nil
	}

	resp, err := a.service.SubmitMessage(ctx, req)
	if err != nil {
		if errors.Is(err, honeypot.ErrEmptySessionID) {
			return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "sessionId is required"}, nil
		}
		a.logger.Error("failed to process message", "session_id", req.SessionID, "error", err)
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError, Body: "Internal server error"}, nil
	}
	if a.drain != nil {
		a.drain()
	}
	return jsonResponse(http.StatusOK, resp), nil
}

func jsonResponse(status int, payload any) events.APIGatewayV2HTTPResponse {
	data, err := json.Marshal(payload)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       string(data),
		Headers:    map[string]string{"content-type": "application/json"},
	}
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(evt.Body)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
