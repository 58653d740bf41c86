package driver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/applyerr"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/httpx"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/schema"
)

// extendedProcedureDriver implements spec §4.2 "start / stop
// (extended-procedure)": POST to the workflow-manager, then poll its status
// endpoint until a terminal state or exhaustion.
type extendedProcedureDriver struct {
	*base
	operation string // "start" or "stop"
}

func (d *extendedProcedureDriver) Execute(ctx context.Context, op model.Operation) model.Outcome {
	var kc model.KindConfig
	if d.operation == "start" {
		kc = d.cfg.ForKind(model.KindStart)
	} else {
		kc = d.cfg.ForKind(model.KindStop)
	}
	started := time.Now().UTC()

	req := httpx.Request{
		Method: "POST",
		URL:    extendedProcedureURI(kc.Host, kc.Port, kc.PathPrefix),
		Body: map[string]any{
			"applyId":           model.ApplyIDFromContext(ctx),
			"cpuId":             op.Targets.CPUID,
			"requestInstanceId": op.Targets.RequestInstanceID,
			"operation":         d.operation,
		},
	}

	resp, class, err := d.session.Do(ctx, req, time.Duration(kc.Timeout)*time.Second, kc.ServerConnection)
	switch class {
	case httpx.ClassifyTimeout:
		return terminalFailure(op, req, string(applyerr.E40003), 504, err.Error(), started)
	case httpx.ClassifyConnectionError:
		return terminalFailure(op, req, string(applyerr.E40007), 500, err.Error(), started)
	case httpx.ClassifyUnexpectedTransport:
		return terminalFailure(op, req, string(applyerr.E40008), 500, err.Error(), started)
	}

	if resp.StatusCode != 202 {
		return terminalFailure(op, req, string(applyerr.E40004), resp.StatusCode, "extended procedure start did not return 202", started)
	}

	raw, _ := json.Marshal(resp.Body)
	var accepted schema.ExtendedProcedureAccepted
	_ = json.Unmarshal(raw, &accepted)
	if accepted.ExtendedProcedureID == "" {
		return terminalFailure(op, req, string(applyerr.E40034), 500, "extended procedure response omitted extendedProcedureID", started)
	}

	return d.pollExtendedProcedure(ctx, op, kc, req, resp, accepted.ExtendedProcedureID, started)
}

func (d *extendedProcedureDriver) pollExtendedProcedure(ctx context.Context, op model.Operation, kc model.KindConfig, req httpx.Request, initial httpx.Response, procID string, started time.Time) model.Outcome {
	statusURL := extendedProcedureStatusURI(kc.Host, kc.Port, kc.PathPrefix, procID)

	for i := 0; i < kc.Polling.Count; i++ {
		statusReq := httpx.Request{Method: "GET", URL: statusURL}
		r, class, err := d.session.Do(ctx, statusReq, time.Duration(kc.Timeout)*time.Second, kc.ServerConnection)
		if class != httpx.ClassifySuccess {
			return terminalFailure(op, req, string(applyerr.E40034), 500, errString(err), started)
		}

		status, perr := schema.ParseExtendedProcedureStatus(r.Body)
		if perr != nil {
			return terminalFailure(op, req, string(applyerr.E40034), 500, "extended procedure status failed schema validation", started)
		}

		if status.Terminal() {
			out := model.Status(model.StatusFailed)
			if status.Status == schema.ExtProcCompleted {
				out = model.StatusCompleted
			}
			return model.Outcome{Result: model.OpResult{
				OperationID: op.ID, Status: out,
				URI: req.URL, Method: req.Method, RequestBody: req.Body,
				ResponseBody: initial.Body, StatusCode: initial.StatusCode,
				GetInfo:   &model.SubResult{URI: statusURL, Method: "GET", StatusCode: r.StatusCode, ResponseBody: r.Body},
				StartedAt: started, EndedAt: time.Now().UTC(),
			}}
		}

		if err := d.sleep(ctx, time.Duration(kc.Polling.Interval)*time.Second); err != nil {
			break
		}
	}

	return model.Outcome{Result: model.OpResult{
		OperationID: op.ID, Status: model.StatusFailed,
		URI: req.URL, Method: req.Method, RequestBody: req.Body,
		ErrorCode: string(applyerr.E40033),
		Message:   "extended procedure did not complete within polling budget",
		StartedAt: started, EndedAt: time.Now().UTC(),
	}}
}
