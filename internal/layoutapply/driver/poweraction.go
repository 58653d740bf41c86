package driver

import (
	"context"
	"time"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/applyerr"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/httpx"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
)

// issuePowerRequest runs the common request/classify/retry sequence shared
// by every driver that issues one PUT and reclassifies on non-success
// (spec §4.1 steps 1-3). It returns the final response on success, or a
// terminal Outcome to return immediately (the caller checks `done`).
func (b *base) issuePowerRequest(ctx context.Context, op model.Operation, kc model.KindConfig, req httpx.Request, started time.Time) (resp httpx.Response, suspended bool, outcome model.Outcome, done bool) {
	timeout := time.Duration(kc.Timeout) * time.Second

	attempt := 0
	for {
		r, class, err := b.session.Do(ctx, req, timeout, kc.ServerConnection)
		switch class {
		case httpx.ClassifyTimeout:
			return httpx.Response{}, false, terminalFailure(op, req, string(applyerr.E40003), 504, err.Error(), started), true
		case httpx.ClassifyConnectionError:
			return httpx.Response{}, false, terminalFailure(op, req, string(applyerr.E40007), 500, err.Error(), started), true
		case httpx.ClassifyUnexpectedTransport:
			return httpx.Response{}, false, terminalFailure(op, req, string(applyerr.E40008), 500, err.Error(), started), true
		}

		if r.StatusCode == 200 {
			return r, false, model.Outcome{}, false
		}

		interval, maxCount, _ := retryEnvelope(kc, r)
		if attempt >= maxCount {
			out := model.Outcome{Result: model.OpResult{
				OperationID:  op.ID,
				Status:       model.StatusFailed,
				URI:          req.URL,
				Method:       req.Method,
				RequestBody:  req.Body,
				ResponseBody: r.Body,
				StatusCode:   r.StatusCode,
				ErrorCode:    string(applyerr.E40025),
				Message:      "serious retry-target failure, retry budget exhausted",
				StartedAt:    started,
				EndedAt:      time.Now().UTC(),
			}, Suspended: true}
			return r, true, out, true
		}
		if err := b.sleep(ctx, time.Duration(interval)*time.Second); err != nil {
			return httpx.Response{}, false, terminalFailure(op, req, string(applyerr.E40008), 500, "canceled during retry wait", started), true
		}
		attempt++
	}
}

// fetchDeviceInfo issues the device-info GET for deviceID and parses it.
func (b *base) fetchDeviceInfo(ctx context.Context, kc model.KindConfig, deviceID string) (httpx.Response, error) {
	req := httpx.Request{Method: "GET", URL: deviceInfoURI(kc.Host, kc.Port, kc.PathPrefix, deviceID)}
	resp, class, err := b.session.Do(ctx, req, time.Duration(kc.Timeout)*time.Second, kc.ServerConnection)
	if class != httpx.ClassifySuccess || resp.StatusCode != 200 {
		if err == nil {
			err = applyerr.New(applyerr.E40023, "device-info request returned status %d", resp.StatusCode)
		}
		return httpx.Response{}, err
	}
	return resp, nil
}
