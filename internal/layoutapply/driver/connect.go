package driver

import (
	"context"
	"time"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/applyerr"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/httpx"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/schema"
)

// connectDriver implements spec §4.2 "connect": pre-check decides whether
// the device must first be powered on (including OS-boot verification),
// then polls for powerState=="On", then issues the connect request itself.
type connectDriver struct {
	*base
	poweron *poweronDriver
}

func (d *connectDriver) Execute(ctx context.Context, op model.Operation) model.Outcome {
	kc := d.cfg.ForKind(model.KindConnect)
	started := time.Now().UTC()

	info, err := d.fetchDeviceInfo(ctx, kc, op.Targets.DeviceID)
	if err != nil {
		return terminalFailure(op, httpx.Request{}, string(applyerr.E40023), 500, err.Error(), started)
	}
	devInfo, perr := schema.ParseDeviceInfo(info.Body)
	if perr != nil {
		return terminalFailure(op, httpx.Request{}, string(applyerr.E40001), 500, "device-info response failed schema validation", started)
	}

	if devInfo.Powerable() {
		poweronOp := op
		poweronOp.Kind = model.KindBoot
		out := d.poweron.Execute(ctx, poweronOp)
		if out.Result.Status != model.StatusCompleted {
			out.Result.OperationID = op.ID
			return out
		}

		var last schema.DeviceInfo
		ok := false
		for i := 0; i < kc.Polling.Count; i++ {
			r, gerr := d.fetchDeviceInfo(ctx, kc, op.Targets.DeviceID)
			if gerr != nil {
				return terminalFailure(op, httpx.Request{}, string(applyerr.E40023), 500, gerr.Error(), started)
			}
			last, perr = schema.ParseDeviceInfo(r.Body)
			if perr != nil {
				return terminalFailure(op, httpx.Request{}, string(applyerr.E40001), 500, "device-info response failed schema validation", started)
			}
			if last.PowerState == schema.PowerOn {
				ok = true
				break
			}
			if err := d.sleep(ctx, time.Duration(kc.Polling.Interval)*time.Second); err != nil {
				break
			}
		}
		if !ok {
			return model.Outcome{Result: model.OpResult{
				OperationID: op.ID, Status: model.StatusFailed,
				ErrorCode: string(applyerr.E40029),
				Message:   "power state did not reach On before connect",
				GetInfo:   &model.SubResult{ResponseBody: map[string]any{"powerState": string(last.PowerState)}},
				StartedAt: started, EndedAt: time.Now().UTC(),
			}}
		}
	}

	req := httpx.Request{
		Method: "PUT",
		URL:    aggregationsURI(kc.Host, kc.Port, kc.PathPrefix, op.Targets.CPUID),
		Body:   map[string]any{"action": "connect", "deviceID": op.Targets.DeviceID},
	}
	resp, _, outcome, done := d.issuePowerRequest(ctx, op, kc, req, started)
	if done {
		return outcome
	}

	return model.Outcome{Result: model.OpResult{
		OperationID: op.ID, Status: model.StatusCompleted,
		URI: req.URL, Method: req.Method, RequestBody: req.Body,
		ResponseBody: resp.Body, StatusCode: resp.StatusCode,
		StartedAt: started, EndedAt: time.Now().UTC(),
	}}
}
