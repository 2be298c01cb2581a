package observability

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/matchday/internal/platform/logging"
	otellog "go.opentelemetry.io/otel/log"
	otelglobal "go.opentelemetry.io/otel/log/global"
)

const (
	uptraceLogInstrumentation = "matchday/internal/platform/logging"

	// mirrorMaxDepth bounds recursion into nested values so a cyclic
	// structure cannot hang the mirror.
	mirrorMaxDepth = 3

	healthPath = "/healthz"
)

// newUptraceLogMirror forwards records accepted by the zap core to the
// global OpenTelemetry logger provider, so they land in Uptrace next to
// the traces they belong to. ConfigureOpentelemetry must have installed
// the provider before the mirror is registered.
func newUptraceLogMirror(serviceVersion string) logging.MirrorFunc {
	otelLogger := otelglobal.Logger(uptraceLogInstrumentation,
		otellog.WithInstrumentationVersion(serviceVersion),
	)

	return func(ctx context.Context, level logging.Level, msg string, args ...any) {
		if healthProbeNoise(msg, args) {
			return
		}

		sev := severityOf(level)
		if !otelLogger.Enabled(ctx, otellog.EnabledParameters{Severity: sev, EventName: msg}) {
			return
		}

		now := time.Now()
		var rec otellog.Record
		rec.SetTimestamp(now)
		rec.SetObservedTimestamp(now)
		rec.SetSeverity(sev)
		rec.SetSeverityText(strings.ToUpper(level.String()))
		rec.SetEventName(msg)
		rec.SetBody(otellog.StringValue(msg))
		rec.AddAttributes(logAttributes(args)...)

		otelLogger.Emit(ctx, rec)
	}
}

// healthProbeNoise reports whether a record is request middleware output
// for the health endpoint. Uptime checks hit it every few seconds and
// would dominate the stored records.
func healthProbeNoise(msg string, args []any) bool {
	if msg != "http request" {
		return false
	}
	for i := 0; i+1 < len(args); i += 2 {
		if key, _ := args[i].(string); key == "path" {
			path, ok := args[i+1].(string)
			return ok && path == healthPath
		}
	}
	return false
}

func severityOf(level logging.Level) otellog.Severity {
	switch {
	case level <= logging.LevelDebug:
		return otellog.SeverityDebug
	case level == logging.LevelInfo:
		return otellog.SeverityInfo
	case level == logging.LevelWarn:
		return otellog.SeverityWarn
	case level > logging.LevelError:
		return otellog.SeverityFatal
	default:
		return otellog.SeverityError
	}
}

// logAttributes applies the same pairing rules as the zap field
// conversion, so a record carries identical keys in both sinks.
func logAttributes(args []any) []otellog.KeyValue {
	if len(args) == 0 {
		return nil
	}

	attrs := make([]otellog.KeyValue, 0, (len(args)+1)/2)
	for len(args) > 0 {
		key, ok := args[0].(string)
		if !ok || key == "" {
			key = "arg"
		}
		if len(args) == 1 {
			attrs = append(attrs, otellog.Empty(key))
			break
		}
		attrs = append(attrs, otellog.KeyValue{Key: key, Value: logValue(args[1], 0)})
		args = args[2:]
	}

	return attrs
}

func logValue(v any, depth int) otellog.Value {
	if depth > mirrorMaxDepth {
		return otellog.StringValue(fmt.Sprint(v))
	}

	switch val := v.(type) {
	case nil:
		return otellog.Value{}
	case string:
		return otellog.StringValue(val)
	case bool:
		return otellog.BoolValue(val)
	case int:
		return otellog.Int64Value(int64(val))
	case int64:
		return otellog.Int64Value(val)
	case int8, int16, int32:
		return otellog.Int64Value(reflect.ValueOf(val).Int())
	case uint8, uint16, uint32:
		return otellog.Int64Value(int64(reflect.ValueOf(val).Uint()))
	case uint, uint64, uintptr:
		u := reflect.ValueOf(val).Uint()
		if u > math.MaxInt64 {
			return otellog.StringValue(strconv.FormatUint(u, 10))
		}
		return otellog.Int64Value(int64(u))
	case float32:
		return otellog.Float64Value(float64(val))
	case float64:
		return otellog.Float64Value(val)
	case []byte:
		// The record may outlive the caller's buffer.
		buf := make([]byte, len(val))
		copy(buf, val)
		return otellog.BytesValue(buf)
	case time.Time:
		return otellog.StringValue(val.UTC().Format(time.RFC3339Nano))
	case time.Duration:
		return otellog.StringValue(val.String())
	case error:
		return otellog.StringValue(val.Error())
	case fmt.Stringer:
		return otellog.StringValue(val.String())
	}

	return reflectLogValue(reflect.ValueOf(v), depth)
}

func reflectLogValue(rv reflect.Value, depth int) otellog.Value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return otellog.Value{}
		}
		return logValue(rv.Elem().Interface(), depth+1)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			// Named byte slice and byte array types.
			buf := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(buf), rv)
			return otellog.BytesValue(buf)
		}
		items := make([]otellog.Value, rv.Len())
		for i := range items {
			items[i] = logValue(rv.Index(i).Interface(), depth+1)
		}
		return otellog.SliceValue(items...)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		entries := make([]otellog.KeyValue, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, otellog.KeyValue{
				Key:   iter.Key().String(),
				Value: logValue(iter.Value().Interface(), depth+1),
			})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		return otellog.MapValue(entries...)
	}

	return otellog.StringValue(fmt.Sprint(rv.Interface()))
}
