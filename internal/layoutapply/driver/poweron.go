package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/applyerr"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/httpx"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/schema"
)

// poweronDriver implements the boot/poweron kind (spec §4.2 "boot /
// poweron"). Also invoked inline by connectDriver when a device is
// powerable.
type poweronDriver struct{ *base }

func (d *poweronDriver) Execute(ctx context.Context, op model.Operation) model.Outcome {
	kc := d.cfg.ForKind(model.KindBoot)
	started := time.Now().UTC()
	req := httpx.Request{
		Method: "PUT",
		URL:    powerURI(kc.Host, kc.Port, kc.PathPrefix, op.Targets.DeviceID),
		Body:   map[string]any{"action": "on"},
	}

	resp, _, outcome, done := d.issuePowerRequest(ctx, op, kc, req, started)
	if done {
		return outcome
	}

	return d.confirmOSBoot(ctx, op, kc, req, resp, started)
}

// confirmOSBoot runs the OS-boot confirmation poll (spec §4.2). A response
// whose (statusCode, code) matches a configured skip entry ends the
// post-condition immediately with COMPLETED and no OS-boot verification.
func (d *poweronDriver) confirmOSBoot(ctx context.Context, op model.Operation, kc model.KindConfig, req httpx.Request, resp httpx.Response, started time.Time) model.Outcome {
	// deviceId doubles as the CPU identifier for the boot-check API in this
	// kind; boot targets only ever carry deviceId (spec §3 table).
	checkURL := isOSReadyURI(kc.Host, kc.Port, kc.PathPrefix, op.Targets.DeviceID)
	if kc.Timeout > 0 {
		checkURL = fmt.Sprintf("%s?timeOut=%d", checkURL, kc.Timeout)
	}

	for i := 0; i < kc.Polling.Count; i++ {
		checkReq := httpx.Request{Method: "GET", URL: checkURL}
		r, class, err := d.session.Do(ctx, checkReq, time.Duration(kc.Timeout)*time.Second, kc.ServerConnection)
		if class != httpx.ClassifySuccess {
			return terminalFailure(op, req, string(applyerr.E40008), 500, errString(err), started)
		}

		if code, ok := schema.ParseRetryTargetCode(r.Body); ok {
			for _, skip := range kc.Polling.Skip {
				if skip.StatusCode == r.StatusCode && skip.Code == code {
					return model.Outcome{Result: model.OpResult{
						OperationID: op.ID, Status: model.StatusCompleted,
						URI: req.URL, Method: req.Method, RequestBody: req.Body,
						ResponseBody: resp.Body, StatusCode: resp.StatusCode,
						StartedAt: started, EndedAt: time.Now().UTC(),
					}}
				}
			}
		}

		if r.StatusCode == 200 {
			osReady, perr := schema.ParseIsOSReady(r.Body)
			if perr == nil && osReady.Status {
				return model.Outcome{Result: model.OpResult{
					OperationID: op.ID, Status: model.StatusCompleted,
					URI: req.URL, Method: req.Method, RequestBody: req.Body,
					ResponseBody: resp.Body, StatusCode: resp.StatusCode,
					IsOSBoot:  &model.SubResult{URI: checkURL, Method: "GET", StatusCode: r.StatusCode, ResponseBody: r.Body},
					StartedAt: started, EndedAt: time.Now().UTC(),
				}}
			}
		}

		if err := d.sleep(ctx, time.Duration(kc.Polling.Interval)*time.Second); err != nil {
			break
		}
	}

	return model.Outcome{Result: model.OpResult{
		OperationID: op.ID, Status: model.StatusFailed,
		URI: req.URL, Method: req.Method, RequestBody: req.Body,
		ErrorCode: string(applyerr.E40021),
		Message:   "confirmed OS boot failure: polling exhausted",
		IsOSBoot:  &model.SubResult{URI: checkURL, Method: "GET"},
		StartedAt: started, EndedAt: time.Now().UTC(),
	}}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
