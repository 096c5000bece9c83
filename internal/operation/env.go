package operation

import "encoding/json"

// MergeEnv concatenates EnvDelta lists from multiple applied plan
// items in apply order, which is also the order the Dynamic
// Environment Builder must apply them in: later items' mutations can
// observe earlier items' PATH entries.
func MergeEnv(outcomes []ApplyOutcome) []EnvDelta {
	var merged []EnvDelta
	for _, o := range outcomes {
		merged = append(merged, o.Env...)
	}
	return merged
}

// EnvMetadataKey is the reserved InstallRecord.Metadata key an
// install's EnvDelta contributions are stored under. A skipped plan
// item (one whose install already exists) never re-invokes the
// driver, so Up reads this key to rebuild the full desired environment
// across every reference a work directory holds, not just the items
// applied on the current run.
const EnvMetadataKey = "__omni_env"

// EncodeEnvMetadata sets EnvMetadataKey in meta to env, returning meta
// unchanged if env is empty.
func EncodeEnvMetadata(meta map[string]any, env []EnvDelta) map[string]any {
	if len(env) == 0 {
		return meta
	}
	if meta == nil {
		meta = make(map[string]any, 1)
	}
	meta[EnvMetadataKey] = env
	return meta
}

// DecodeEnvMetadata extracts the EnvDelta list EncodeEnvMetadata
// stored in meta, round-tripping through JSON since meta came back
// from the Cache Store as untyped map[string]any content.
func DecodeEnvMetadata(meta map[string]any) []EnvDelta {
	raw, ok := meta[EnvMetadataKey]
	if !ok {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var env []EnvDelta
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}
	return env
}
