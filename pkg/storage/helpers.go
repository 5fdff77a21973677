package storage

import (
	"encoding/json"
	"fmt"
)

// ===== HELPER FUNCTIONS =====

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}

func encodeSentNodes(nodes []string) (string, error) {
	if nodes == nil {
		nodes = []string{}
	}
	data, err := json.Marshal(nodes)
	if err != nil {
		return "", fmt.Errorf("failed to encode sent nodes: %w", err)
	}
	return string(data), nil
}

func decodeSentNodes(data string) ([]string, error) {
	nodes := []string{}
	if data == "" {
		return nodes, nil
	}
	if err := json.Unmarshal([]byte(data), &nodes); err != nil {
		return nil, fmt.Errorf("failed to decode sent nodes: %w", err)
	}
	return nodes, nil
}
