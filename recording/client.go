package recording

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/rsheth/callsync/internal/errors"
	"github.com/tidwall/gjson"
)

const (
	adminAPIPath = "/admin_api.php"
	uploadPath   = "/upload-recording.php"

	fetchCallLogsTask = "get_call_logs_with_recordings"

	// callLogTimeLayout is how the backend renders call start times.
	callLogTimeLayout = "2006-01-02 15:04:05"
)

// Client talks to the remote call-log and upload API. The backend is a
// loosely typed PHP service: numeric fields arrive as strings or numbers
// depending on the code path, so responses are read with gjson instead
// of rigid struct decoding.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an API client for the given base URL. If httpClient
// is nil, http.DefaultClient is used.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// post sends a JSON POST request and returns the raw response body.
func (c *Client) post(ctx context.Context, endpoint string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d: %s",
			apperrors.ErrAPIRequest, endpoint, resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// FetchCallLogs returns the call-log candidate set for matching. The
// caller treats any error as an empty candidate list; sync proceeds
// unlinked rather than failing the run.
func (c *Client) FetchCallLogs(ctx context.Context, userID, limit, offset int) ([]CallLogRecord, error) {
	body := map[string]int{
		"user_id": userID,
		"limit":   limit,
		"offset":  offset,
	}

	respBody, err := c.post(ctx, adminAPIPath+"?task="+fetchCallLogsTask, body)
	if err != nil {
		return nil, fmt.Errorf("fetching call logs: %w", err)
	}

	root := gjson.ParseBytes(respBody)
	if root.Get("status").String() != "success" {
		return nil, fmt.Errorf("%w: call log fetch status %q", apperrors.ErrAPIResponse, root.Get("status").String())
	}

	var records []CallLogRecord

	root.Get("data").ForEach(func(_, row gjson.Result) bool {
		rec := CallLogRecord{
			ID:           row.Get("id").String(),
			PhoneNumber:  row.Get("phonenumber").String(),
			CustomerID:   row.Get("customerid").String(),
			RecordingURL: row.Get("recordingurl").String(),
		}

		// Call logs are stamped in the device's local zone, the same
		// zone recording timestamps decode in.
		if t, err := time.ParseInLocation(callLogTimeLayout, row.Get("starttime").String(), time.Local); err == nil {
			rec.StartTime = t
		}

		records = append(records, rec)

		return true
	})

	return records, nil
}

// Upload sends one recording with its parsed metadata and identity key.
// A reachable server that refuses the upload is reported through
// UploadResult.Success, not an error; transport failures are errors.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	respBody, err := c.post(ctx, uploadPath, req)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", req.FileName, err)
	}

	root := gjson.ParseBytes(respBody)

	return &UploadResult{
		Success:   root.Get("success").Bool(),
		Matched:   root.Get("matched").Bool(),
		CallLogID: root.Get("call_log_id").String(),
		FileURL:   root.Get("file_url").String(),
		Message:   root.Get("message").String(),
	}, nil
}
