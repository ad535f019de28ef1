package collection

import (
	"encoding/json"
	"fmt"

	"github.com/kcz17/benchmetrics/recorder"
)

// EncodePayload serialises a worker's timing log as a JSON object mapping each
// tag to a list of [timestamp, seconds] pairs.
func EncodePayload(log recorder.TimingLog) ([]byte, error) {
	if log == nil {
		log = recorder.TimingLog{}
	}
	b, err := json.Marshal(log)
	if err != nil {
		return nil, fmt.Errorf("could not encode worker payload: %w", err)
	}
	return b, nil
}

func DecodePayload(payload []byte) (recorder.TimingLog, error) {
	var log recorder.TimingLog
	if err := json.Unmarshal(payload, &log); err != nil {
		return nil, err
	}
	if log == nil {
		// The payload was JSON null.
		return nil, fmt.Errorf("expected JSON object; got %q", string(payload))
	}
	return log, nil
}
