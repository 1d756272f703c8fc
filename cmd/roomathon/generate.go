package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/roomathon/internal/app"
)

// runGenerate runs one report generation and prints the result as JSON.
// Returns the process exit code.
func runGenerate(application *app.App, inspectionID, requester string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := application.ReportService.GenerateReport(ctx, inspectionID, requester)
	if err != nil {
		logger.Error().Err(err).Str("inspection_id", inspectionID).Msg("Report generation failed")
		return 1
	}

	return printJSON(result)
}

// runNotify re-sends the email for an inspection whose report is already published
func runNotify(application *app.App, inspectionID, requester string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := application.ReportService.ResendNotification(ctx, inspectionID, requester)
	if err != nil {
		logger.Error().Err(err).Str("inspection_id", inspectionID).Msg("Notification failed")
		return 1
	}

	code := printJSON(result)
	if !result.Sent {
		return 2
	}
	return code
}

func printJSON(v interface{}) int {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode result")
		return 1
	}
	fmt.Println(string(out))
	return 0
}
