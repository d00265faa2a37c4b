package logging

import "time"

func String(key, value string) Field  { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }
func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d.String()}
}

// Error records err under "error"; a nil error logs as null.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Component(name string) Field   { return String("component", name) }
func Operation(op string) Field     { return String("operation", op) }
func Latency(d time.Duration) Field { return Duration("latency", d) }
func Count(n int) Field             { return Int("count", n) }
func Path(p string) Field           { return String("path", p) }

// Provenance graph identifiers
func NodeID(id string) Field         { return String("node_id", id) }
func EdgeID(id string) Field         { return String("edge_id", id) }
func StoreLabel(label string) Field  { return String("label", label) }
func DefinitionID(id string) Field   { return String("definition_id", id) }
func StudyID(id string) Field        { return String("study_id", id) }
func RelType(t string) Field         { return String("relationship_type", t) }
func Status(status string) Field     { return String("result", status) }
