package usecase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dagstat/pkg/domain"
	"github.com/m-mizutani/dagstat/pkg/domain/interfaces"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// maxPages bounds a single listing so a server ignoring offset cannot loop forever
const maxPages = 1000

type dagRunsResponse struct {
	DagRuns      []dagRunResponse `json:"dag_runs"`
	TotalEntries int              `json:"total_entries"`
}

// Airflow 2 (API v1) may send execution_date instead of logical_date
type dagRunResponse struct {
	DagRunID      string  `json:"dag_run_id"`
	RunType       string  `json:"run_type"`
	LogicalDate   *string `json:"logical_date"`
	ExecutionDate *string `json:"execution_date"`
	StartDate     *string `json:"start_date"`
	EndDate       *string `json:"end_date"`
	State         string  `json:"state"`
}

type taskInstancesResponse struct {
	TaskInstances []taskInstanceResponse `json:"task_instances"`
	TotalEntries  int                    `json:"total_entries"`
}

type taskInstanceResponse struct {
	TaskID         *string `json:"task_id"`
	State          *string `json:"state"`
	StartDate      *string `json:"start_date"`
	EndDate        *string `json:"end_date"`
	TryNumber      *int    `json:"try_number"`
	MaxTries       *int    `json:"max_tries"`
	Operator       *string `json:"operator"`
	OperatorName   *string `json:"operator_name"`
	PriorityWeight *int    `json:"priority_weight"`
}

type AirflowClient struct {
	baseURL    string
	apiVersion string
	pageSize   int
	auth       interfaces.AuthService
}

type AirflowClientOptions struct {
	BaseURL    string
	APIVersion string
	PageSize   int
	Auth       interfaces.AuthService
}

func NewAirflowClient(opts AirflowClientOptions) interfaces.AirflowClient {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = model.DefaultPageSize
	}
	apiVersion := opts.APIVersion
	if apiVersion == "" {
		apiVersion = model.DefaultAPIVersion
	}

	return &AirflowClient{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		apiVersion: apiVersion,
		pageSize:   pageSize,
		auth:       opts.Auth,
	}
}

// FetchTaskInstances lists the DAG runs of dagID inside window and collects
// the task instances of each of them. Both listings are paged sequentially.
func (c *AirflowClient) FetchTaskInstances(ctx context.Context, dagID string, window model.TimeWindow) ([]*model.RawTaskInstance, error) {
	logger := ctxlog.From(ctx)

	client, err := c.auth.GetAuthenticatedClient(ctx)
	if err != nil {
		return nil, err
	}

	runs, err := c.listDagRuns(ctx, client, dagID, window)
	if err != nil {
		return nil, err
	}

	logger.Info("fetched DAG runs",
		slog.String("dag_id", dagID),
		slog.Int("count", len(runs)),
		slog.String("window", window.String()),
	)

	var records []*model.RawTaskInstance
	for _, run := range runs {
		tasks, err := c.listTaskInstances(ctx, client, dagID, run.DagRunID)
		if err != nil {
			return nil, err
		}

		for _, task := range tasks {
			operator := task.Operator
			if operator == nil {
				operator = task.OperatorName
			}
			records = append(records, &model.RawTaskInstance{
				DagID:          dagID,
				DagRunID:       run.DagRunID,
				RunType:        run.RunType,
				LogicalDate:    run.logicalDate(),
				DagState:       run.State,
				TaskID:         task.TaskID,
				State:          task.State,
				StartDate:      task.StartDate,
				EndDate:        task.EndDate,
				TryNumber:      task.TryNumber,
				MaxTries:       task.MaxTries,
				Operator:       operator,
				PriorityWeight: task.PriorityWeight,
			})
		}
	}

	logger.Debug("fetched task instances",
		slog.String("dag_id", dagID),
		slog.Int("runs", len(runs)),
		slog.Int("count", len(records)),
	)

	return records, nil
}

func (r *dagRunResponse) logicalDate() *string {
	if r.LogicalDate != nil {
		return r.LogicalDate
	}
	return r.ExecutionDate
}

func (c *AirflowClient) listDagRuns(ctx context.Context, client *http.Client, dagID string, window model.TimeWindow) ([]dagRunResponse, error) {
	logger := ctxlog.From(ctx)
	path := "/dags/" + url.PathEscape(dagID) + "/dagRuns"

	var runs []dagRunResponse
	seen := make(map[string]struct{})
	err := c.paginate(func(offset int) (int, int, error) {
		query := url.Values{
			"limit":            []string{strconv.Itoa(c.pageSize)},
			"offset":           []string{strconv.Itoa(offset)},
			"logical_date_gte": []string{window.Start.Format(time.RFC3339)},
			"logical_date_lte": []string{window.End.Format(time.RFC3339)},
			"order_by":         []string{"id"},
		}

		var page dagRunsResponse
		if err := c.getJSON(ctx, client, path, query, &page); err != nil {
			return 0, 0, err
		}

		// servers ignoring the date filters still must not leak runs outside the window
		for _, run := range page.DagRuns {
			ts := parseTimestamp(run.logicalDate())
			if ts == nil || !window.Contains(*ts) {
				logger.Debug("skip DAG run outside window",
					slog.String("dag_run_id", run.DagRunID),
				)
				continue
			}
			// a run created while paging can shift a row onto the next page
			if _, ok := seen[run.DagRunID]; ok {
				continue
			}
			seen[run.DagRunID] = struct{}{}
			runs = append(runs, run)
		}
		return len(page.DagRuns), page.TotalEntries, nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list DAG runs", goerr.V("dag_id", dagID))
	}

	return runs, nil
}

func (c *AirflowClient) listTaskInstances(ctx context.Context, client *http.Client, dagID, dagRunID string) ([]taskInstanceResponse, error) {
	path := "/dags/" + url.PathEscape(dagID) + "/dagRuns/" + url.PathEscape(dagRunID) + "/taskInstances"

	var tasks []taskInstanceResponse
	err := c.paginate(func(offset int) (int, int, error) {
		query := url.Values{
			"limit":  []string{strconv.Itoa(c.pageSize)},
			"offset": []string{strconv.Itoa(offset)},
		}

		var page taskInstancesResponse
		if err := c.getJSON(ctx, client, path, query, &page); err != nil {
			return 0, 0, err
		}
		tasks = append(tasks, page.TaskInstances...)
		return len(page.TaskInstances), page.TotalEntries, nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list task instances",
			goerr.V("dag_id", dagID),
			goerr.V("dag_run_id", dagRunID),
		)
	}

	return tasks, nil
}

// paginate calls fetch with increasing offsets until total_entries is reached
// or an empty page arrives. The server may cap limit below the page size, so a
// short page only ends paging when total_entries is not reported. fetch
// returns the page length and total_entries (0 when absent).
func (c *AirflowClient) paginate(fetch func(offset int) (int, int, error)) error {
	offset := 0
	for page := 0; ; page++ {
		if page >= maxPages {
			return domain.ErrAPIRequest.Wrap(goerr.New("too many pages"), goerr.V("max_pages", maxPages))
		}

		n, total, err := fetch(offset)
		if err != nil {
			return err
		}
		offset += n

		switch {
		case n == 0:
			return nil
		case total > 0:
			if offset >= total {
				return nil
			}
		case n < c.pageSize:
			return nil
		}
	}
}

func (c *AirflowClient) getJSON(ctx context.Context, client *http.Client, path string, query url.Values, out any) error {
	endpoint := c.baseURL + "/api/" + c.apiVersion + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.ErrConfiguration.Wrap(err, goerr.V("url", endpoint))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return domain.ErrConnection.Wrap(err, goerr.V("url", endpoint))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ErrConnection.Wrap(err, goerr.V("url", endpoint))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.ErrAuthentication.Wrap(goerr.New("credentials rejected by airflow"),
			goerr.V("status", resp.StatusCode),
			goerr.V("url", endpoint),
		)
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound.Wrap(goerr.New("airflow returned 404"),
			goerr.V("url", endpoint),
			goerr.V("detail", truncate(string(body), 200)),
		)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return domain.ErrAPIRequest.Wrap(goerr.New("unexpected status from airflow"),
			goerr.V("status", resp.StatusCode),
			goerr.V("url", endpoint),
			goerr.V("body", truncate(string(body), 200)),
		)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return domain.ErrAPIRequest.Wrap(err, goerr.V("url", endpoint))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
