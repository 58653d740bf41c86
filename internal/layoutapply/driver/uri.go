package driver

import "fmt"

// URI templates per spec §6. host/port/pathPrefix come from KindConfig;
// parameter ordering (host, port, prefix, id) matches
// original_source/src/layoutapply/const.py's ApiUri templates.

func powerURI(host string, port int, prefix, deviceID string) string {
	return fmt.Sprintf("http://%s:%d/%s/devices/%s/power", host, port, prefix, deviceID)
}

func aggregationsURI(host string, port int, prefix, cpuID string) string {
	return fmt.Sprintf("http://%s:%d/%s/cpu/%s/aggregations", host, port, prefix, cpuID)
}

func isOSReadyURI(host string, port int, prefix, cpuID string) string {
	return fmt.Sprintf("http://%s:%d/%s/cpu/%s/is-os-ready", host, port, prefix, cpuID)
}

func deviceInfoURI(host string, port int, prefix, deviceID string) string {
	return fmt.Sprintf("http://%s:%d/%s/devices/%s/specs", host, port, prefix, deviceID)
}

func extendedProcedureURI(host string, port int, prefix string) string {
	return fmt.Sprintf("http://%s:%d/%s/extended-procedure", host, port, prefix)
}

func extendedProcedureStatusURI(host string, port int, prefix, id string) string {
	return fmt.Sprintf("http://%s:%d/%s/extended-procedure/%s", host, port, prefix, id)
}
