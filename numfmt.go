package lattice

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/nfp"
)

// FormatValue renders a value through an Excel number format string.
// Format parsing is delegated to github.com/xuri/nfp; this file only
// implements rendering on top of the token stream. Empty or "General"
// formats use the General style; text and boolean values render as
// themselves; errors render their label.
func FormatValue(v Value, format string) string {
	switch v.kind {
	case KindBlank:
		return ""
	case KindText:
		return v.text
	case KindBool:
		if v.boolean {
			return "TRUE"
		}
		return "FALSE"
	case KindError:
		return v.errKind.Label()
	}

	if format == "" || format == "General" {
		return formatNumber(v.num)
	}
	parser := nfp.NumberFormatParser()
	sections := parser.Parse(format)
	if len(sections) == 0 {
		return formatNumber(v.num)
	}
	sec := pickSection(sections, v.num)
	if hasDateTokens(sec) {
		return renderSerialDate(v.num, sec)
	}
	return renderNumeric(v.num, sec, len(sections))
}

// pickSection selects the format section for the value's sign:
// one section covers everything, two split positive/negative, three or
// four add a zero section.
func pickSection(sections []nfp.Section, val float64) nfp.Section {
	switch {
	case len(sections) == 1:
		return sections[0]
	case len(sections) == 2:
		if val < 0 {
			return sections[1]
		}
		return sections[0]
	case val > 0:
		return sections[0]
	case val < 0:
		return sections[1]
	default:
		return sections[2]
	}
}

func hasDateTokens(sec nfp.Section) bool {
	for _, tok := range sec.Items {
		if tok.TType == nfp.TokenTypeDateTimes || tok.TType == nfp.TokenTypeElapsedDateTimes {
			return true
		}
	}
	return false
}

// renderSerialDate renders a serial day number through the section's
// calendar tokens. M/MM means minutes after an hour token, months
// otherwise; literal separators between them keep the hour context.
func renderSerialDate(serial float64, sec nfp.Section) string {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial < 0 {
		return formatNumber(serial)
	}
	t := serialToTime(serial)

	hasAmPm := false
	for _, tok := range sec.Items {
		if tok.TType == nfp.TokenTypeDateTimes {
			u := strings.ToUpper(tok.TValue)
			if u == "AM/PM" || u == "A/P" {
				hasAmPm = true
			}
		}
	}

	var b strings.Builder
	afterHour := false
	for _, tok := range sec.Items {
		switch tok.TType {
		case nfp.TokenTypeDateTimes:
			u := strings.ToUpper(tok.TValue)
			b.WriteString(dateToken(u, t, hasAmPm, afterHour))
			afterHour = u == "H" || u == "HH"
		case nfp.TokenTypeElapsedDateTimes:
			u := strings.ToUpper(tok.TValue)
			b.WriteString(elapsedToken(u, serial))
			afterHour = u == "H" || u == "HH"
		case nfp.TokenTypeLiteral:
			b.WriteString(tok.TValue)
		default:
			afterHour = false
		}
	}
	if b.Len() == 0 {
		return formatNumber(serial)
	}
	return b.String()
}

func dateToken(u string, t time.Time, hasAmPm, afterHour bool) string {
	hour := t.Hour()
	if hasAmPm {
		hour %= 12
		if hour == 0 {
			hour = 12
		}
	}
	switch u {
	case "YYYY":
		return fmt.Sprintf("%04d", t.Year())
	case "YY":
		return fmt.Sprintf("%02d", t.Year()%100)
	case "MMMM":
		return t.Month().String()
	case "MMM":
		return t.Month().String()[:3]
	case "MM":
		if afterHour {
			return fmt.Sprintf("%02d", t.Minute())
		}
		return fmt.Sprintf("%02d", int(t.Month()))
	case "M":
		if afterHour {
			return strconv.Itoa(t.Minute())
		}
		return strconv.Itoa(int(t.Month()))
	case "DDDD":
		return t.Weekday().String()
	case "DDD":
		return t.Weekday().String()[:3]
	case "DD":
		return fmt.Sprintf("%02d", t.Day())
	case "D":
		return strconv.Itoa(t.Day())
	case "HH":
		return fmt.Sprintf("%02d", hour)
	case "H":
		return strconv.Itoa(hour)
	case "SS":
		return fmt.Sprintf("%02d", t.Second())
	case "S":
		return strconv.Itoa(t.Second())
	case "AM/PM":
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	case "A/P":
		if t.Hour() < 12 {
			return "A"
		}
		return "P"
	}
	return ""
}

// elapsedToken renders [h]/[mm]/[ss] style tokens from the raw serial.
func elapsedToken(u string, serial float64) string {
	switch u {
	case "H", "HH":
		return strconv.Itoa(int(serial * 24))
	case "MM":
		return fmt.Sprintf("%02d", int(serial*24*60)%60)
	case "M":
		return strconv.Itoa(int(serial*24*60) % 60)
	case "SS":
		return fmt.Sprintf("%02d", int(serial*24*3600)%60)
	case "S":
		return strconv.Itoa(int(serial*24*3600) % 60)
	}
	return ""
}

// serialToTime converts a day serial to calendar time in UTC.
func serialToTime(serial float64) time.Time {
	frac := int64(math.Round((serial - math.Trunc(serial)) * 86400))
	if frac > 86399 {
		frac = 86399
	}
	base := time.UnixMilli(excelEpochMS).UTC()
	return base.Add(time.Duration(int64(serial))*24*time.Hour + time.Duration(frac)*time.Second)
}

// renderNumeric renders a plain number section: percent scaling,
// thousands grouping, zero/hash decimal placeholders, literal text.
func renderNumeric(val float64, sec nfp.Section, sectionCount int) string {
	var (
		percent   bool
		thousands bool
		decZeros  int
		decHashes int
		intZeros  int
		decimal   bool
	)
	afterDecimal := false
	for _, tok := range sec.Items {
		switch tok.TType {
		case nfp.TokenTypePercent:
			percent = true
		case nfp.TokenTypeThousandsSeparator:
			thousands = true
		case nfp.TokenTypeDecimalPoint:
			decimal = true
			afterDecimal = true
		case nfp.TokenTypeZeroPlaceHolder:
			if afterDecimal {
				decZeros += len(tok.TValue)
			} else {
				intZeros += len(tok.TValue)
			}
		case nfp.TokenTypeHashPlaceHolder:
			if afterDecimal {
				decHashes += len(tok.TValue)
			}
		}
	}

	abs := math.Abs(val)
	if percent {
		abs *= 100
	}

	var intPart, fracPart string
	if decimal {
		places := decZeros + decHashes
		formatted := strconv.FormatFloat(abs, 'f', places, 64)
		if dot := strings.IndexByte(formatted, '.'); dot >= 0 {
			intPart, fracPart = formatted[:dot], formatted[dot+1:]
		} else {
			intPart, fracPart = formatted, strings.Repeat("0", places)
		}
		for len(fracPart) > decZeros && strings.HasSuffix(fracPart, "0") {
			fracPart = fracPart[:len(fracPart)-1]
		}
	} else {
		intPart = strconv.FormatFloat(math.Round(abs), 'f', 0, 64)
	}
	for len(intPart) < intZeros {
		intPart = "0" + intPart
	}
	if thousands {
		intPart = groupThousands(intPart)
	}

	var b strings.Builder
	// a lone section must carry the sign itself; multi-section formats
	// encode negative display in their own section
	if val < 0 && sectionCount < 2 {
		b.WriteByte('-')
	}
	intDone, fracDone := false, false
	afterDecimal = false
	for _, tok := range sec.Items {
		switch tok.TType {
		case nfp.TokenTypeLiteral:
			b.WriteString(tok.TValue)
		case nfp.TokenTypeDecimalPoint:
			if len(fracPart) > 0 {
				b.WriteByte('.')
			}
			afterDecimal = true
		case nfp.TokenTypeZeroPlaceHolder, nfp.TokenTypeHashPlaceHolder:
			if afterDecimal {
				if !fracDone {
					b.WriteString(fracPart)
					fracDone = true
				}
			} else if !intDone {
				b.WriteString(intPart)
				intDone = true
			}
		case nfp.TokenTypePercent:
			b.WriteByte('%')
		}
	}
	if !intDone && !afterDecimal {
		b.WriteString(intPart)
	}
	if b.Len() == 0 {
		return formatNumber(val)
	}
	return b.String()
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(s[:head])
	for i := head; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
