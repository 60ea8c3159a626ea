package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/lambertxiao/go-fcp/pkg/metrics"
	"github.com/mattn/go-isatty"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const (
	BLACK = 30 + iota
	RED
	GREEN
	YELLOW
	BLUE
	MAGENTA
	CYAN
	WHITE
)

const (
	RESET_SEQ      = "\033[0m"
	COLOR_SEQ      = "\033[1;" // %dm
	COLOR_DARK_SEQ = "\033[0;" // %dm
	UNDERLINE_SEQ  = "\033[4m"
)

const (
	metricByte = 1 << iota
	metricCount
	metricTime
	metricGauge
	metricCounter
	metricHist
)

type item struct {
	nick  string
	name  string
	label string // matches any label value when empty
	typ   uint8
}

type section struct {
	name  string
	items []*item
}

type statsPrinter struct {
	colorful bool
	out      io.Writer
	sections []*section
}

func (w *statsPrinter) colorize(msg string, color int, dark bool, underline bool) string {
	if !w.colorful || msg == "" || msg == " " {
		return msg
	}
	var cseq, useq string
	if dark {
		cseq = COLOR_DARK_SEQ
	} else {
		cseq = COLOR_SEQ
	}
	if underline {
		useq = UNDERLINE_SEQ
	}
	return fmt.Sprintf("%s%s%dm%s%s", useq, cseq, color, msg, RESET_SEQ)
}

func metricName(name string) string {
	return metrics.Prefix + name
}

func (w *statsPrinter) buildSchema(schema string) {
	for _, r := range schema {
		var s section
		switch r {
		case 'p':
			s.name = "partitions"
			s.items = append(s.items, &item{"opened", metricName("partitions_opened_total"), "", metricCount | metricCounter})
			s.items = append(s.items, &item{"written", metricName("entries_written_total"), "", metricCount | metricCounter})
			s.items = append(s.items, &item{"grown", metricName("entries_truncated_total"), "", metricCount | metricCounter})
			s.items = append(s.items, &item{"duplicate", metricName("entries_skipped_total"), metrics.SkipDuplicate, metricCount | metricCounter})
			s.items = append(s.items, &item{"logical", metricName("entries_skipped_total"), metrics.SkipLogical, metricCount | metricCounter})
			s.items = append(s.items, &item{"protected", metricName("entries_skipped_total"), metrics.SkipProtected, metricCount | metricCounter})
			s.items = append(s.items, &item{"empty", metricName("entries_skipped_total"), metrics.SkipEmpty, metricCount | metricCounter})
		case 'w':
			s.name = "write"
			s.items = append(s.items, &item{"bytes", metricName("entry_written_bytes_total"), "", metricByte | metricCounter})
			s.items = append(s.items, &item{"write_ops", metricName("entry_write_durations_histogram_seconds"), "", metricTime | metricHist})
		case 'o':
			s.name = "object storage"
			s.items = append(s.items, &item{"read", metricName("object_request_data_bytes"), "READ", metricByte | metricCounter})
			s.items = append(s.items, &item{"read_req", metricName("object_request_durations_histogram_seconds"), "READ", metricTime | metricHist})
			s.items = append(s.items, &item{"head_req", metricName("object_request_durations_histogram_seconds"), "HEAD", metricTime | metricHist})
		case 'u':
			s.name = "process"
			s.items = append(s.items, &item{"cpu", metricName("process_cpu_seconds_total"), "", metricTime | metricCounter})
			s.items = append(s.items, &item{"mem", metricName("process_resident_memory_bytes"), "", metricByte | metricGauge})
		default:
			continue
		}
		w.sections = append(w.sections, &s)
	}
}

func padding(name string, width int, char byte) string {
	pad := width - len(name)
	if pad < 0 {
		pad = 0
		name = name[0:width]
	}
	prefix := (pad + 1) / 2
	buf := make([]byte, width)
	for i := 0; i < prefix; i++ {
		buf[i] = char
	}
	copy(buf[prefix:], name)
	for i := prefix + len(name); i < width; i++ {
		buf[i] = char
	}
	return string(buf)
}

func (w *statsPrinter) formatU64(v float64, isByte bool) string {
	if v <= 0.0 {
		return w.colorize("       0 ", BLACK, false, false)
	}
	var vi uint64
	var unit string
	var color int
	switch vi = uint64(v); {
	case vi < 10000:
		if isByte {
			unit = "B"
		} else {
			unit = " "
		}
		color = RED
	case vi>>10 < 10000:
		vi, unit, color = vi>>10, "K", YELLOW
	case vi>>20 < 10000:
		vi, unit, color = vi>>20, "M", GREEN
	case vi>>30 < 10000:
		vi, unit, color = vi>>30, "G", BLUE
	case vi>>40 < 10000:
		vi, unit, color = vi>>40, "T", MAGENTA
	default:
		vi, unit, color = vi>>50, "P", CYAN
	}
	return w.colorize(fmt.Sprintf("%8d", vi), color, false, false) +
		w.colorize(unit, BLACK, false, false)
}

// formatTime renders milliseconds.
func (w *statsPrinter) formatTime(v float64) string {
	var ret string
	var color int
	switch {
	case v <= 0.0:
		ret, color = "       0 ", BLACK
	case v < 10.0:
		ret, color = fmt.Sprintf("%8.2f ", v), GREEN
	case v < 100.0:
		ret, color = fmt.Sprintf("%8.1f ", v), YELLOW
	case v < 10000.0:
		ret, color = fmt.Sprintf("%8.f ", v), RED
	default:
		ret, color = fmt.Sprintf("%8.e", v), MAGENTA
	}
	return w.colorize(ret, color, false, false)
}

// lookup sums every sample of name whose labels carry value, or every sample
// when value is empty. ok is false when the family is absent.
func lookup(families map[string]*dto.MetricFamily, name, value string) (v, count float64, ok bool) {
	mf, ok := families[name]
	if !ok {
		return 0, 0, false
	}
	for _, m := range mf.GetMetric() {
		if value != "" && !hasLabelValue(m, value) {
			continue
		}
		switch mf.GetType() {
		case dto.MetricType_COUNTER:
			v += m.GetCounter().GetValue()
		case dto.MetricType_GAUGE:
			v += m.GetGauge().GetValue()
		case dto.MetricType_HISTOGRAM:
			v += m.GetHistogram().GetSampleSum()
			count += float64(m.GetHistogram().GetSampleCount())
		case dto.MetricType_UNTYPED:
			v += m.GetUntyped().GetValue()
		}
	}
	return v, count, true
}

func hasLabelValue(m *dto.Metric, value string) bool {
	for _, l := range m.GetLabel() {
		if l.GetValue() == value {
			return true
		}
	}
	return false
}

func (w *statsPrinter) print(families map[string]*dto.MetricFamily) {
	for _, s := range w.sections {
		lines := make([]string, 0, len(s.items))
		for _, it := range s.items {
			v, count, ok := lookup(families, it.name, it.label)
			if !ok {
				continue
			}

			var val string
			switch {
			case it.typ&metricHist != 0:
				var avg float64
				if count > 0 {
					avg = v * 1000 / count
				}
				val = w.formatU64(count, false) + " " + w.formatTime(avg)
			case it.typ&metricTime != 0:
				val = w.formatTime(v * 1000)
			default:
				val = w.formatU64(v, it.typ&metricByte != 0)
			}
			lines = append(lines, fmt.Sprintf("%s %s", w.colorize(fmt.Sprintf("%-10s", it.nick), BLUE, false, true), val))
		}
		if len(lines) == 0 {
			continue
		}

		fmt.Fprintln(w.out, w.colorize(padding(s.name, 40, '-'), BLUE, false, false))
		for _, l := range lines {
			fmt.Fprintln(w.out, l)
		}
	}
}

func readStats(path string) (map[string]*dto.MetricFamily, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return families, nil
}

// ShowStats prints the metrics textfile written by the last write run.
func ShowStats(path string, out io.Writer, colorful bool) error {
	families, err := readStats(path)
	if err != nil {
		return err
	}

	printer := &statsPrinter{
		colorful: colorful,
		out:      out,
	}
	printer.buildSchema("pwou")
	printer.print(families)
	return nil
}

func SupportANSIColor(fd uintptr) bool {
	return isatty.IsTerminal(fd) && runtime.GOOS != "windows"
}
