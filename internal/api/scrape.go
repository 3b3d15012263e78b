package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/infernoscraper/inferno/internal/models"
	"github.com/infernoscraper/inferno/internal/normalize"
)

// scrapeRequest is the POST /scrape body. Dates go out as DD/MM/YYYY.
type scrapeRequest struct {
	Mode          models.ScrapeMode `json:"mode"`
	Subcategories []string          `json:"subcategories"`
	DateStart     *string           `json:"date_start"`
	DateEnd       *string           `json:"date_end"`
}

func newScrapeRequest(mode models.ScrapeMode, f models.ScrapeFilters) scrapeRequest {
	req := scrapeRequest{Mode: mode, Subcategories: f.Subcategories}
	if req.Subcategories == nil {
		req.Subcategories = []string{}
	}
	if !f.DateStart.IsZero() {
		s := normalize.FormatDay(f.DateStart)
		req.DateStart = &s
	}
	if !f.DateEnd.IsZero() {
		s := normalize.FormatDay(f.DateEnd)
		req.DateEnd = &s
	}
	return req
}

// StartResponse is the service's answer to a new-job request
type StartResponse struct {
	Job     models.Job // zero StartedAt when the server sent no job
	Message string
}

// StartScrape asks the service to start a job. When a job is already
// running it returns an error wrapping ErrJobInProgress together with a
// response carrying the running job.
func (c *Client) StartScrape(ctx context.Context, filters models.ScrapeFilters) (StartResponse, error) {
	r, err := jsonRequest(http.MethodPost, "/scrape", newScrapeRequest(models.ModeNew, filters), true)
	if err != nil {
		return StartResponse{}, err
	}

	body, status, err := c.do(ctx, r)
	if err != nil {
		return StartResponse{}, err
	}

	payload, decodeErr := decodeAny(body)
	obj, _ := payload.(map[string]any)

	var resp StartResponse
	if obj != nil {
		if j, ok := obj["job"].(map[string]any); ok {
			resp.Job = jobFromMap(j, c.logger)
		}
		resp.Message = normalize.Value(obj["error"])
	}

	switch {
	case status == http.StatusConflict:
		return resp, jobInProgress(resp.Message)
	case status < 200 || status > 299:
		return resp, &APIError{Status: status, Message: errorMessage(body)}
	case decodeErr != nil || obj == nil:
		return resp, fmt.Errorf("neočakávaná odpoveď zo servera: %w", errors.Join(decodeErr, errUnexpectedShape))
	}

	switch ok := obj["ok"].(type) {
	case bool:
		if !ok {
			return resp, jobInProgress(resp.Message)
		}
	default:
		return resp, fmt.Errorf("neočakávaná odpoveď zo servera: %w", errUnexpectedShape)
	}

	c.logger.Info("Scrape job accepted", "started_at", resp.Job.StartedAt)
	return resp, nil
}

var errUnexpectedShape = errors.New("missing ok flag")

func jobInProgress(msg string) error {
	if msg == "" {
		return ErrJobInProgress
	}
	return fmt.Errorf("%w: %s", ErrJobInProgress, msg)
}

// FetchResults runs a direct results query. ModeLatest returns the last
// finished job's results, ModeOld the accumulated history.
func (c *Client) FetchResults(ctx context.Context, mode models.ScrapeMode, filters models.ScrapeFilters) ([]models.ResultRecord, error) {
	if mode == models.ModeNew {
		return nil, fmt.Errorf("mode %q starts a job, use StartScrape", mode)
	}

	r, err := jsonRequest(http.MethodPost, "/scrape", newScrapeRequest(mode, filters), true)
	if err != nil {
		return nil, err
	}
	body, err := c.call(ctx, r)
	if err != nil {
		return nil, err
	}

	records, err := DecodeRecords(body)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Fetched results", "mode", mode, "count", len(records))
	return records, nil
}

// JobStatus polls the current job snapshot
func (c *Client) JobStatus(ctx context.Context) (models.Job, error) {
	body, err := c.call(ctx, request{method: http.MethodGet, path: "/job_status", auth: true})
	if err != nil {
		return models.Job{}, err
	}
	return DecodeJob(body, c.logger)
}

// Cancel asks the service to stop the running job
func (c *Client) Cancel(ctx context.Context) error {
	_, err := c.call(ctx, request{method: http.MethodPost, path: "/cancel", auth: true})
	return err
}

// Restart asks the service to restart itself
func (c *Client) Restart(ctx context.Context) error {
	_, err := c.call(ctx, request{method: http.MethodPost, path: "/restart", auth: true})
	return err
}
