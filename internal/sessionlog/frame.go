package sessionlog

import (
	"errors"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/sweepview/internal/history"
	"github.com/banshee-data/sweepview/internal/sensor"
)

// Frame is one recorded sweep with its capture time.
type Frame struct {
	Record      history.Record
	TimestampNs int64
}

// encodeFrame packs a frame into a protobuf Struct. Timestamps are decimal
// strings since Struct numbers are doubles.
func encodeFrame(f Frame) ([]byte, error) {
	rows, cols := f.Record.Sweep.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.New("frame has no sweep data")
	}

	cfg := f.Record.SensorConfig
	fields := map[string]*structpb.Value{
		"timestamp_ns": structpb.NewStringValue(strconv.FormatInt(f.TimestampNs, 10)),
		"service_type": structpb.NewStringValue(f.Record.ServiceType),
		"clutter_file": structpb.NewStringValue(f.Record.ClutterFile),
		"rows":         structpb.NewNumberValue(float64(rows)),
		"cols":         structpb.NewNumberValue(float64(cols)),
		"data":         numberList(f.Record.Sweep.Flatten()),
		"sensor_config": structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"mode":        structpb.NewStringValue(string(cfg.Mode)),
			"range_start": structpb.NewNumberValue(cfg.RangeStart()),
			"range_stop":  structpb.NewNumberValue(cfg.RangeStop()),
			"sweep_rate":  structpb.NewNumberValue(cfg.SweepRate),
			"gain":        structpb.NewNumberValue(cfg.Gain),
		}}),
	}
	if f.Record.Sweep.Imag != nil {
		imag := make([]float64, 0, rows*cols)
		for i := 0; i < rows; i++ {
			imag = append(imag, f.Record.Sweep.Imag.RawRowView(i)...)
		}
		fields["imag"] = numberList(imag)
	}
	if info := f.Record.Info; info != nil {
		fields["info"] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"sequence_number": structpb.NewNumberValue(float64(info.SequenceNumber)),
			"data_saturated":  structpb.NewBoolValue(info.DataSaturated),
			"missed_data":     structpb.NewBoolValue(info.MissedData),
		}})
	}
	return proto.Marshal(&structpb.Struct{Fields: fields})
}

func decodeFrame(data []byte) (Frame, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return Frame{}, err
	}
	fields := s.GetFields()

	rows := int(fields["rows"].GetNumberValue())
	cols := int(fields["cols"].GetNumberValue())
	if rows <= 0 || cols <= 0 {
		return Frame{}, fmt.Errorf("bad sweep shape %dx%d", rows, cols)
	}
	samples, err := numbers(fields["data"], rows*cols)
	if err != nil {
		return Frame{}, fmt.Errorf("data: %w", err)
	}
	sweep := sensor.NewSweep(rows, cols, samples)
	if v, ok := fields["imag"]; ok {
		imag, err := numbers(v, rows*cols)
		if err != nil {
			return Frame{}, fmt.Errorf("imag: %w", err)
		}
		sweep.Imag = sensor.NewSweep(rows, cols, imag).Data
	}

	cfgFields := fields["sensor_config"].GetStructValue().GetFields()
	mode, err := sensor.ParseMode(cfgFields["mode"].GetStringValue())
	if err != nil {
		return Frame{}, err
	}
	rec := history.Record{
		ServiceType: fields["service_type"].GetStringValue(),
		ClutterFile: fields["clutter_file"].GetStringValue(),
		Sweep:       sweep,
		SensorConfig: sensor.Config{
			Mode:          mode,
			RangeInterval: [2]float64{cfgFields["range_start"].GetNumberValue(), cfgFields["range_stop"].GetNumberValue()},
			SweepRate:     cfgFields["sweep_rate"].GetNumberValue(),
			Gain:          cfgFields["gain"].GetNumberValue(),
		},
	}
	if v, ok := fields["info"]; ok {
		info := v.GetStructValue().GetFields()
		rec.Info = &sensor.Info{
			SequenceNumber: int(info["sequence_number"].GetNumberValue()),
			DataSaturated:  info["data_saturated"].GetBoolValue(),
			MissedData:     info["missed_data"].GetBoolValue(),
		}
	}
	ts, err := strconv.ParseInt(fields["timestamp_ns"].GetStringValue(), 10, 64)
	if err != nil {
		return Frame{}, fmt.Errorf("timestamp: %w", err)
	}
	return Frame{Record: rec, TimestampNs: ts}, nil
}

func numberList(vs []float64) *structpb.Value {
	list := make([]*structpb.Value, len(vs))
	for i, v := range vs {
		list[i] = structpb.NewNumberValue(v)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: list})
}

func numbers(v *structpb.Value, want int) ([]float64, error) {
	list := v.GetListValue().GetValues()
	if len(list) != want {
		return nil, fmt.Errorf("got %d samples, want %d", len(list), want)
	}
	out := make([]float64, len(list))
	for i, n := range list {
		out[i] = n.GetNumberValue()
	}
	return out, nil
}
