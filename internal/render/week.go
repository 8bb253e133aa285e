// Package render рисует недельный календарь слотов пользователя в PNG.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Константы размеров и отступов
const (
	imageWidth       = 1400
	imageHeight      = 900
	headerHeight     = 100
	leftLabelsWidth  = 80
	legendWidth      = 160
	dayPaddingX      = 8
	minSlotHeight    = 8.0
	slotBorderRadius = 6.0
	shadowOffset     = 3.0
	daysInWeek       = 7
	hourPaddingTop   = 1
	hourPaddingBot   = 1
	defaultMinHour   = 8
	defaultMaxHour   = 20
	maxTitleRunes    = 22
)

// Константы шрифтов
const (
	titleFontSize      = 25.0
	dayFontSize        = 24.0
	hourLabelFontSize  = 16.0
	slotTimeFontSize   = 15.0
	legendItemFontSize = 12.0
)

// Цветовая схема
var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 125}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	slotBusyColor      = color.RGBA{158, 158, 158, 200}
	slotSwappableColor = color.RGBA{133, 193, 85, 220}
	slotPendingColor   = color.RGBA{255, 196, 87, 235}
	slotDefaultColor   = color.RGBA{220, 220, 220, 200}
	slotTextColor      = color.RGBA{20, 24, 28, 230}
	slotShadowColor    = color.RGBA{0, 0, 0, 20}

	legendItemColor = color.RGBA{70, 74, 78, 220}
)

type fontStyle int

const (
	fontRegular fontStyle = iota
	fontBold
)

var (
	fontsOnce   sync.Once
	parsedFonts map[fontStyle]*opentype.Font
)

func parseFonts() {
	parsedFonts = make(map[fontStyle]*opentype.Font)
	for style, data := range map[fontStyle][]byte{
		fontRegular: goregular.TTF,
		fontBold:    gobold.TTF,
	} {
		if f, err := opentype.Parse(data); err == nil {
			parsedFonts[style] = f
		}
	}
}

// setFont выбирает шрифт или basicfont как fallback
func setFont(dc *gg.Context, size float64, style fontStyle) {
	fontsOnce.Do(parseFonts)

	if f, ok := parsedFonts[style]; ok {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

type weekBounds struct {
	start time.Time
	end   time.Time // exclusive
}

type hourRange struct {
	start int
	end   int
	total int
}

// WeekStart возвращает понедельник недели, в которую попадает date
func WeekStart(date time.Time) time.Time {
	day := normalizeToDay(date)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// WeekImage рисует слоты, начинающиеся в неделе с датой date, в PNG.
// now is used to highlight the current day and time.
func WeekImage(date time.Time, events []*model.Event, now time.Time) ([]byte, error) {
	start := WeekStart(date)
	week := weekBounds{start: start, end: start.AddDate(0, 0, daysInWeek)}

	now = now.In(date.Location())
	today := normalizeToDay(now)
	highlightToday := !today.Before(week.start) && today.Before(week.end)

	byDay := groupByDay(events, week)
	hours := calculateHourRange(byDay, week.start.Location())

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / daysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	drawHeader(dc, week)
	drawHourLabels(dc, hours, cellHeight)

	for i := 0; i < daysInWeek; i++ {
		day := week.start.AddDate(0, 0, i)
		x := float64(leftLabelsWidth + i*dayWidth)
		y := float64(headerHeight)

		drawDayBackground(dc, x, y, dayWidth, dayHeight, i, highlightToday && day.Equal(today))
		drawDayHeader(dc, day, x, y, dayWidth)
		drawHourLines(dc, x, y, dayWidth, hours, cellHeight)
		for _, e := range byDay[day.Format(time.DateOnly)] {
			drawSlot(dc, e, day, x, y, dayWidth, hours, cellHeight)
		}
	}

	if highlightToday {
		drawCurrentTimeLine(dc, now, hours, cellHeight, dayWidth)
	}
	drawLegend(dc, dayWidth)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func normalizeToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// groupByDay группирует слоты недели по дню начала
func groupByDay(events []*model.Event, week weekBounds) map[string][]*model.Event {
	byDay := make(map[string][]*model.Event)
	loc := week.start.Location()
	for _, e := range events {
		st := e.StartTime.In(loc)
		if st.Before(week.start) || !st.Before(week.end) {
			continue
		}
		key := st.Format(time.DateOnly)
		byDay[key] = append(byDay[key], e)
	}
	return byDay
}

// calculateHourRange определяет диапазон часов для отображения
func calculateHourRange(byDay map[string][]*model.Event, loc *time.Location) hourRange {
	minHour, maxHour := 24, 0

	for _, events := range byDay {
		for _, e := range events {
			st := e.StartTime.In(loc)
			day := normalizeToDay(st)
			endH := min(int(math.Ceil(hourOf(e.EndTime, day))), 24)

			minHour = min(minHour, st.Hour())
			maxHour = max(maxHour, endH)
		}
	}

	if minHour == 24 {
		minHour, maxHour = defaultMinHour, defaultMaxHour
	}

	start := max(minHour-hourPaddingTop, 0)
	end := min(maxHour+hourPaddingBot, 24)
	return hourRange{start: start, end: end, total: end - start}
}

func drawHeader(dc *gg.Context, week weekBounds) {
	last := week.end.AddDate(0, 0, -1)
	title := monthName(week.start.Month())
	if last.Month() != week.start.Month() {
		title += " - " + monthName(last.Month())
	}
	title += fmt.Sprintf(" %d", week.start.Year())

	setFont(dc, titleFontSize, fontBold)
	dc.SetColor(textColor)
	_, h := dc.MeasureString(title)
	dc.DrawStringAnchored(title, float64(leftLabelsWidth), float64(headerHeight)/8+h/2, 0, 0)
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	setFont(dc, hourLabelFontSize, fontRegular)
	dc.SetColor(hourLabelColor)

	for i := 0; i <= hours.total; i++ {
		y := float64(headerHeight) + float64(i)*cellHeight
		dc.DrawStringAnchored(fmt.Sprintf("%02d:00", hours.start+i), float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDayBackground(dc *gg.Context, x, y float64, dayWidth, dayHeight, dayIndex int, isToday bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case dayIndex%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()
}

func drawDayHeader(dc *gg.Context, date time.Time, x, y float64, dayWidth int) {
	setFont(dc, dayFontSize, fontBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(date.Format("02.01"), x+float64(dayWidth)/2, y, 0.5, -1)
	dc.DrawStringAnchored(weekdayShort(date.Weekday()), x+float64(dayWidth)/2, y, 0.5, -0.2)
}

func drawHourLines(dc *gg.Context, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)

	for i := 0; i <= hours.total; i++ {
		hy := y + float64(i)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

// hourOf переводит время в дробные часы от начала дня day
func hourOf(t, day time.Time) float64 {
	return t.Sub(day).Hours()
}

func drawSlot(dc *gg.Context, e *model.Event, day time.Time, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	startH := hourOf(e.StartTime, day)
	endH := min(hourOf(e.EndTime, day), float64(hours.end))

	slotY := y + (startH-float64(hours.start))*cellHeight
	slotHeight := max((endH-startH)*cellHeight, minSlotHeight)
	slotWidth := float64(dayWidth) - float64(dayPaddingX*2)
	fill := slotColor(e.Status)

	// Тень
	dc.SetColor(slotShadowColor)
	dc.DrawRoundedRectangle(x+dayPaddingX+shadowOffset, slotY+2+shadowOffset, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Fill()

	// Основной слот
	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+dayPaddingX, slotY+2, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Fill()

	// Рамка
	dc.SetColor(darkenColor(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+dayPaddingX, slotY+2, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Stroke()

	setFont(dc, slotTimeFontSize, fontBold)
	dc.SetColor(slotTextColor)
	txtX := x + dayPaddingX + 8
	txtY := slotY + 18
	dc.DrawStringAnchored(e.StartTime.In(day.Location()).Format("15:04"), txtX, txtY, 0, 0)

	if slotHeight > 25 {
		setFont(dc, slotTimeFontSize-2, fontRegular)
		dc.DrawStringAnchored(truncate(e.Title, maxTitleRunes), txtX, txtY+16, 0, 0)
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

func slotColor(status model.EventStatus) color.RGBA {
	switch status {
	case model.EventStatusBusy:
		return slotBusyColor
	case model.EventStatusSwappable:
		return slotSwappableColor
	case model.EventStatusSwapPending:
		return slotPendingColor
	default:
		return slotDefaultColor
	}
}

func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

// drawCurrentTimeLine рисует красную линию текущего времени
func drawCurrentTimeLine(dc *gg.Context, now time.Time, hours hourRange, cellHeight float64, dayWidth int) {
	current := hourOf(now, normalizeToDay(now))
	if current < float64(hours.start) || current > float64(hours.end) {
		return
	}

	y := float64(headerHeight) + (current-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(float64(leftLabelsWidth), y, float64(leftLabelsWidth+daysInWeek*dayWidth), y)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, dayWidth int) {
	items := []struct {
		label string
		clr   color.Color
	}{
		{"Занято", slotBusyColor},
		{"Можно обменять", slotSwappableColor},
		{"Ожидает обмена", slotPendingColor},
	}

	const boxW, boxH = 20.0, 14.0
	lx := float64(leftLabelsWidth + daysInWeek*dayWidth + 10)
	ly := float64(imageHeight) - 100.0 + 22

	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(lx, ly, boxW, boxH, 3)
		dc.Fill()

		setFont(dc, legendItemFontSize, fontRegular)
		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(item.label, lx+boxW+8, ly+boxH/2+1, 0, 0.2)
		ly += boxH + 14
	}
}

func weekdayShort(d time.Weekday) string {
	return [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}[d]
}

func monthName(m time.Month) string {
	return [...]string{
		"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
		"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
	}[m-1]
}
