package metrics

import (
	"sort"
	"strconv"
	"strings"
)

// Render produces the Prometheus text exposition (format 0.0.4) for
// every registered metric. HELP and TYPE lines are emitted for all
// registered metrics even when no series has been recorded yet, so a
// scraper sees a stable set of families. Series within a family render
// in sorted label-key order for deterministic output.
func (a *Aggregator) Render() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var b strings.Builder
	for _, def := range a.registry.Definitions() {
		b.WriteString("# HELP ")
		b.WriteString(def.Name)
		b.WriteByte(' ')
		b.WriteString(escapeHelp(def.Help))
		b.WriteByte('\n')
		b.WriteString("# TYPE ")
		b.WriteString(def.Name)
		b.WriteByte(' ')
		b.WriteString(string(def.Kind))
		b.WriteByte('\n')

		switch def.Kind {
		case KindCounter:
			series := a.counters[def.Name]
			for _, key := range sortedKeys(series) {
				s := series[key]
				b.WriteString(def.Name)
				b.WriteString(renderLabels(def.Labels, s.Labels, "", ""))
				b.WriteByte(' ')
				b.WriteString(strconv.FormatInt(s.Value, 10))
				b.WriteByte('\n')
			}
		case KindGauge:
			series := a.gauges[def.Name]
			for _, key := range sortedKeys(series) {
				s := series[key]
				b.WriteString(def.Name)
				b.WriteString(renderLabels(def.Labels, s.Labels, "", ""))
				b.WriteByte(' ')
				b.WriteString(formatFloat(s.Value))
				b.WriteByte('\n')
			}
		case KindHistogram:
			series := a.histograms[def.Name]
			for _, key := range sortedKeys(series) {
				s := series[key]
				for i, bound := range def.Buckets {
					b.WriteString(def.Name)
					b.WriteString("_bucket")
					b.WriteString(renderLabels(def.Labels, s.Labels, "le", formatFloat(bound)))
					b.WriteByte(' ')
					b.WriteString(strconv.FormatUint(s.Buckets[i], 10))
					b.WriteByte('\n')
				}
				b.WriteString(def.Name)
				b.WriteString("_bucket")
				b.WriteString(renderLabels(def.Labels, s.Labels, "le", "+Inf"))
				b.WriteByte(' ')
				b.WriteString(strconv.FormatUint(s.Count, 10))
				b.WriteByte('\n')
				b.WriteString(def.Name)
				b.WriteString("_sum")
				b.WriteString(renderLabels(def.Labels, s.Labels, "", ""))
				b.WriteByte(' ')
				b.WriteString(formatFloat(s.Sum))
				b.WriteByte('\n')
				b.WriteString(def.Name)
				b.WriteString("_count")
				b.WriteString(renderLabels(def.Labels, s.Labels, "", ""))
				b.WriteByte(' ')
				b.WriteString(strconv.FormatUint(s.Count, 10))
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

// renderLabels renders a {name="value",...} block in sorted name order,
// optionally appending one extra label (used for le). Returns the empty
// string when there are no labels at all.
func renderLabels(names []string, values map[string]string, extraName, extraValue string) string {
	if len(names) == 0 && extraName == "" {
		return ""
	}
	pairs := make([]string, 0, len(names)+1)
	for _, name := range names {
		pairs = append(pairs, name+`="`+escapeLabelValue(values[name])+`"`)
	}
	if extraName != "" {
		pairs = append(pairs, extraName+`="`+escapeLabelValue(extraValue)+`"`)
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ",") + "}"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var labelValueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeLabelValue(v string) string {
	return labelValueEscaper.Replace(v)
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func escapeHelp(v string) string {
	return helpEscaper.Replace(v)
}
