package driver

import (
	"context"
	"time"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/applyerr"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/httpx"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/schema"
)

// poweroffDriver implements the shutdown/poweroff kind (spec §4.2
// "shutdown / poweroff"). It is also invoked inline by disconnectDriver
// when a device is powerable.
type poweroffDriver struct{ *base }

func (d *poweroffDriver) Execute(ctx context.Context, op model.Operation) model.Outcome {
	kc := d.cfg.ForKind(model.KindShutdown)
	started := time.Now().UTC()
	req := httpx.Request{
		Method: "PUT",
		URL:    powerURI(kc.Host, kc.Port, kc.PathPrefix, op.Targets.DeviceID),
		Body:   map[string]any{"action": "off"},
	}

	resp, suspended, outcome, done := d.issuePowerRequest(ctx, op, kc, req, started)
	if done {
		_ = suspended
		return outcome
	}

	return d.confirmPoweredOff(ctx, op, kc, req, resp, started)
}

// confirmPoweredOff polls device-info until powerState=="Off" for CPU
// devices; non-CPU devices are recorded COMPLETED without polling (the
// "no polling occurs" rule in spec §4.2 is about skipping the post-check
// for non-CPU devices). IsCPU is decided from a device-info GET, never from
// the power PUT's response body (apiclient.py:668).
func (d *poweroffDriver) confirmPoweredOff(ctx context.Context, op model.Operation, kc model.KindConfig, req httpx.Request, resp httpx.Response, started time.Time) model.Outcome {
	first, gerr := d.fetchDeviceInfo(ctx, kc, op.Targets.DeviceID)
	if gerr != nil {
		return terminalFailure(op, req, string(applyerr.E40023), 500, gerr.Error(), started)
	}
	info, err := schema.ParseDeviceInfo(first.Body)
	if err != nil {
		return terminalFailure(op, req, string(applyerr.E40001), 500, "device-info response failed schema validation", started)
	}

	if !info.IsCPU() {
		return model.Outcome{Result: model.OpResult{
			OperationID: op.ID, Status: model.StatusCompleted,
			URI: req.URL, Method: req.Method, RequestBody: req.Body,
			ResponseBody: resp.Body, StatusCode: resp.StatusCode,
			StartedAt: started, EndedAt: time.Now().UTC(),
		}}
	}

	var last schema.DeviceInfo
	for i := 0; i < kc.Polling.Count; i++ {
		r, gerr := d.fetchDeviceInfo(ctx, kc, op.Targets.DeviceID)
		if gerr != nil {
			return terminalFailure(op, req, string(applyerr.E40023), 500, gerr.Error(), started)
		}
		last, err = schema.ParseDeviceInfo(r.Body)
		if err != nil {
			return terminalFailure(op, req, string(applyerr.E40001), 500, "device-info response failed schema validation", started)
		}
		if last.PowerState == schema.PowerOff {
			return model.Outcome{Result: model.OpResult{
				OperationID: op.ID, Status: model.StatusCompleted,
				URI: req.URL, Method: req.Method, RequestBody: req.Body,
				ResponseBody: resp.Body, StatusCode: resp.StatusCode,
				GetInfo:   &model.SubResult{URI: deviceInfoURI(kc.Host, kc.Port, kc.PathPrefix, op.Targets.DeviceID), Method: "GET", StatusCode: r.StatusCode, ResponseBody: r.Body},
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
		ErrorCode: string(applyerr.E40029),
		Message:   "power state did not reach Off",
		GetInfo:   &model.SubResult{ResponseBody: map[string]any{"powerState": string(last.PowerState)}},
		StartedAt: started, EndedAt: time.Now().UTC(),
	}}
}
