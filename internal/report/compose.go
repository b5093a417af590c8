package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"roadrich/internal/core"
)

const (
	ContentTypePDF    = "application/pdf"
	DefaultFilePrefix = "rapport"
	DefaultProductURL = "roadrich.app"
	brandName         = "RoadRich"
)

// Options tune the rendered page.
type Options struct {
	FilePrefix string
	ProductURL string
	Watermark  bool
	Policy     Policy
	Theme      Theme
	Now        func() time.Time
}

// DefaultOptions returns the product defaults.
func DefaultOptions() Options {
	return Options{
		FilePrefix: DefaultFilePrefix,
		ProductURL: DefaultProductURL,
		Policy:     DefaultPolicy(),
		Theme:      DarkTheme(),
		Now:        time.Now,
	}
}

// Document is a rendered report.
type Document struct {
	Filename    string
	ContentType string
	Bytes       []byte
}

// Filename builds "<prefix>_<month label lowercased, spaces as underscores>.pdf".
func Filename(prefix, monthName string) string {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultFilePrefix
	}
	label := strings.Join(strings.Fields(strings.ToLower(monthName)), "_")
	if label == "" {
		return prefix + ".pdf"
	}
	return prefix + "_" + label + ".pdf"
}

// Composer lays a Summary out on a single A4 page.
type Composer struct {
	backend *Backend
	opts    Options
}

func NewComposer(backend *Backend, opts Options) *Composer {
	def := DefaultOptions()
	if opts.FilePrefix == "" {
		opts.FilePrefix = def.FilePrefix
	}
	if opts.ProductURL == "" {
		opts.ProductURL = def.ProductURL
	}
	if opts.Policy == (Policy{}) {
		opts.Policy = def.Policy
	}
	if opts.Theme == (Theme{}) {
		opts.Theme = def.Theme
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &Composer{backend: backend, opts: opts}
}

// Policy returns the insight thresholds the composer was built with.
func (c *Composer) Policy() Policy {
	return c.opts.Policy
}

// Generate summarizes in and renders it.
func (c *Composer) Generate(ctx context.Context, in Input) (Document, Summary, error) {
	s := Summarize(in, c.opts.Policy)
	doc, err := c.Compose(ctx, s)
	if err != nil {
		return Document{}, s, err
	}
	return doc, s, nil
}

// Compose renders s. The backend is loaded on first use; if that fails the
// error wraps ErrBackendUnavailable and no document is produced.
func (c *Composer) Compose(ctx context.Context, s Summary) (Document, error) {
	fonts, err := c.backend.Load(ctx)
	if err != nil {
		return Document{}, err
	}
	if err := ctx.Err(); err != nil {
		return Document{}, fmt.Errorf("compose report: %w", err)
	}

	now := c.opts.Now()
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.SetTitle(brandName+" - Rapport "+s.MonthName, true)
	pdf.SetAuthor(brandName, true)
	pdf.SetCreator(brandName, true)

	p := &page{pdf: pdf, theme: c.opts.Theme, policy: c.opts.Policy, fonts: fonts}
	p.tr = fonts.install(pdf)
	pdf.AddPage()
	p.width, p.height = pdf.GetPageSize()
	p.contentWidth = p.width - marginLeft - marginRight

	p.background()
	if c.opts.Watermark {
		p.watermark()
	}
	y := p.header(s.MonthName, marginTop)
	y = p.cards(s, y)
	y = p.table(s.Rows, y)
	p.insights(Displayed(s.Insights), y)
	p.footer(now, c.opts.ProductURL)

	if err := pdf.Error(); err != nil {
		return Document{}, fmt.Errorf("render report: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Document{}, fmt.Errorf("write report: %w", err)
	}

	doc := Document{
		Filename:    Filename(c.opts.FilePrefix, s.MonthName),
		ContentType: ContentTypePDF,
		Bytes:       buf.Bytes(),
	}
	slog.InfoContext(ctx, "Report composed",
		"filename", doc.Filename,
		"rows", len(s.Rows),
		"insights", len(s.Insights),
		"bytes", len(doc.Bytes))
	return doc, nil
}

// page carries the drawing state of one document.
type page struct {
	pdf          *fpdf.Fpdf
	theme        Theme
	policy       Policy
	fonts        *fontSet
	tr           func(string) string
	width        float64
	height       float64
	contentWidth float64
}

func (p *page) font(style string, size float64) {
	p.pdf.SetFont(p.fonts.family, style, size)
}

func (p *page) textColor(c core.RGB) {
	p.pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}

func (p *page) fillColor(c core.RGB) {
	p.pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}

func (p *page) drawColor(c core.RGB) {
	p.pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func (p *page) cell(x, y, w, h float64, text, align string) {
	p.pdf.SetXY(x, y)
	p.pdf.CellFormat(w, h, p.tr(text), "", 0, align, false, 0, "")
}

// fit shortens text with an ellipsis until it fits in w.
func (p *page) fit(text string, w float64) string {
	if p.pdf.GetStringWidth(p.tr(text)) <= w {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := strings.TrimSpace(string(runes)) + "..."
		if p.pdf.GetStringWidth(p.tr(candidate)) <= w {
			return candidate
		}
	}
	return ""
}

// wrap splits text into lines no wider than w using the current font.
// Words wider than w are broken across lines.
func (p *page) wrap(text string, w float64) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		for _, part := range p.breakWord(word, w) {
			candidate := part
			if current != "" {
				candidate = current + " " + part
			}
			if current != "" && p.textWidth(candidate) > w {
				lines = append(lines, current)
				current = part
				continue
			}
			current = candidate
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func (p *page) textWidth(text string) float64 {
	return p.pdf.GetStringWidth(p.tr(text))
}

// breakWord cuts word into pieces that each fit in w. A piece keeps at
// least one rune so the loop always advances.
func (p *page) breakWord(word string, w float64) []string {
	if p.textWidth(word) <= w {
		return []string{word}
	}
	var parts []string
	runes := []rune(word)
	for len(runes) > 0 {
		n := 1
		for n < len(runes) && p.textWidth(string(runes[:n+1])) <= w {
			n++
		}
		parts = append(parts, string(runes[:n]))
		runes = runes[n:]
	}
	return parts
}

func (p *page) background() {
	p.fillColor(p.theme.Background)
	p.pdf.Rect(0, 0, p.width, p.height, "F")
}

func (p *page) watermark() {
	p.pdf.SetAlpha(0.04, "Normal")
	p.pdf.TransformBegin()
	p.pdf.TransformRotate(35, p.width/2, p.height/2)
	p.font("B", 90)
	p.textColor(p.theme.TextPrimary)
	p.cell(0, p.height/2-45, p.width, 90, brandName, "C")
	p.pdf.TransformEnd()
	p.pdf.SetAlpha(1, "Normal")
}

func (p *page) header(monthName string, y float64) float64 {
	const logo = 34.0
	p.fillColor(p.theme.Accent)
	p.pdf.Circle(marginLeft+logo/2, y+logo/2, logo/2, "F")
	p.font("B", 16)
	p.textColor(p.theme.Background)
	p.cell(marginLeft, y, logo, logo, "R", "C")

	p.font("B", 18)
	p.textColor(p.theme.Accent)
	p.cell(marginLeft+logo+10, y+2, 200, 20, brandName, "L")
	p.font("", 9)
	p.textColor(p.theme.TextSecondary)
	p.cell(marginLeft+logo+10, y+21, 200, 12, "Votre bilan financier mensuel", "L")

	p.font("B", 14)
	p.textColor(p.theme.TextPrimary)
	p.cell(marginLeft, y+8, p.contentWidth, 18, "Rapport "+monthName, "R")

	y += logo + 10
	p.drawColor(p.theme.TableLine)
	p.pdf.SetLineWidth(0.75)
	p.pdf.Line(marginLeft, y, p.width-marginRight, y)
	return y + 14
}

func (p *page) sectionTitle(title string, y float64) float64 {
	p.fillColor(p.theme.Accent)
	p.pdf.Rect(marginLeft, y, 3, 12, "F")
	p.font("B", 11)
	p.textColor(p.theme.TextSecondary)
	p.cell(marginLeft+8, y, p.contentWidth-8, 12, title, "L")
	return y + 20
}

type card struct {
	label      string
	value      string
	valueColor core.RGB
	sub        string
	subColor   core.RGB
	accent     core.RGB
}

// summaryCards builds the three KPI cards: expenses, income with the
// savings amount, and the savings rate against its goal.
func (p *page) summaryCards(s Summary) []card {
	expenseSub := s.ExpenseVariation.Label() + " vs mois préc."
	if s.ExpenseVariation.New {
		expenseSub = labelNew
	}
	goal := p.theme.TextMuted
	goalText := fmt.Sprintf("Objectif : %d %%", p.policy.SavingsPraiseRate)
	if s.Income.Cents > 0 && s.SavingsRate >= p.policy.SavingsPraiseRate {
		goal = p.theme.Favorable
		goalText = "Objectif atteint"
	}
	savingsColor := p.theme.Savings
	if s.SavingsRate < 0 {
		savingsColor = p.theme.Unfavorable
	}

	return []card{
		{
			label: "DÉPENSES TOTALES", value: core.FormatCurrency(s.TotalExpenses), valueColor: p.theme.TextPrimary,
			sub: expenseSub, subColor: p.theme.VariationColor(s.ExpenseVariation), accent: p.theme.Accent,
		},
		{
			label: "REVENUS", value: core.FormatCurrency(s.Income), valueColor: p.theme.TextPrimary,
			sub: "Épargne : " + core.FormatCurrency(s.Savings), subColor: p.theme.TextSecondary, accent: p.theme.Tertiary,
		},
		{
			label: "TAUX D'ÉPARGNE", value: strconv.Itoa(s.SavingsRate) + " %", valueColor: savingsColor,
			sub: goalText, subColor: goal, accent: p.theme.Savings,
		},
	}
}

// dailyLine is the median daily expense line drawn under the cards. It is
// only shown when raw expenses were supplied.
func dailyLine(s Summary) (median, variation string, ok bool) {
	if !s.HasDailyStats {
		return "", "", false
	}
	return "Dépense médiane par jour : " + core.FormatCurrency(s.MedianDaily),
		s.MedianDailyVariation.Label() + " vs mois préc.", true
}

func (p *page) cards(s Summary, y float64) float64 {
	y = p.sectionTitle("Vue d'ensemble", y)
	cs := p.summaryCards(s)

	w := (p.contentWidth - 2*cardGap) / float64(len(cs))
	for i, c := range cs {
		x := marginLeft + float64(i)*(w+cardGap)
		p.fillColor(p.theme.Surface)
		p.pdf.Rect(x, y, w, cardHeight, "F")
		p.fillColor(c.accent)
		p.pdf.Rect(x, y, w, 2, "F")

		p.font("", 8)
		p.textColor(p.theme.TextSecondary)
		p.cell(x, y+10, w, 10, c.label, "C")
		p.font("B", 16)
		p.textColor(c.valueColor)
		p.cell(x, y+24, w, 20, p.fit(c.value, w-10), "C")
		p.font("", 9)
		p.textColor(c.subColor)
		p.cell(x, y+50, w, 10, p.fit(c.sub, w-10), "C")
	}
	y += cardHeight + 10

	if median, variation, ok := dailyLine(s); ok {
		p.font("", 9)
		p.textColor(p.theme.TextSecondary)
		p.cell(marginLeft, y, p.contentWidth/2, 12, median, "L")
		p.textColor(p.theme.VariationColor(s.MedianDailyVariation))
		p.cell(marginLeft+p.contentWidth/2, y, p.contentWidth/2, 12, variation, "R")
		y += 16
	}
	return y + 4
}

func (p *page) columnWidths() []float64 {
	fixed := 0.0
	for _, c := range tableColumns {
		fixed += c.width
	}
	widths := make([]float64, len(tableColumns))
	for i, c := range tableColumns {
		widths[i] = c.width
		if c.width == 0 {
			widths[i] = p.contentWidth - fixed
		}
	}
	return widths
}

func (p *page) table(rows []RankedCategoryRow, y float64) float64 {
	y = p.sectionTitle("Classement des dépenses", y)
	widths := p.columnWidths()

	p.fillColor(p.theme.TableHeader)
	p.pdf.Rect(marginLeft, y, p.contentWidth, tableHeaderHeight, "F")
	p.font("B", 8)
	p.textColor(p.theme.Accent)
	x := marginLeft
	for i, c := range tableColumns {
		pad := 0.0
		if c.align == "L" {
			pad = 6
		}
		p.cell(x+pad, y, widths[i]-pad, tableHeaderHeight, c.title, c.align)
		x += widths[i]
	}
	y += tableHeaderHeight

	if len(rows) == 0 {
		p.fillColor(p.theme.Surface)
		p.pdf.Rect(marginLeft, y, p.contentWidth, tableRowHeight, "F")
		p.font("", 9)
		p.textColor(p.theme.TextMuted)
		p.cell(marginLeft, y, p.contentWidth, tableRowHeight, labelEmptyTable, "C")
		return y + tableRowHeight + 14
	}

	for i, row := range rows {
		p.tableRow(row, widths, i, y)
		y += tableRowHeight
	}
	return y + 14
}

func (p *page) tableRow(row RankedCategoryRow, widths []float64, index int, y float64) {
	fill := p.theme.Surface
	if index%2 == 1 {
		fill = p.theme.SurfaceLight
	}
	p.fillColor(fill)
	p.pdf.Rect(marginLeft, y, p.contentWidth, tableRowHeight, "F")
	p.drawColor(p.theme.TableLine)
	p.pdf.SetLineWidth(0.5)
	p.pdf.Line(marginLeft, y+tableRowHeight, p.width-marginRight, y+tableRowHeight)

	x := marginLeft

	// Rang
	p.font("B", 9)
	p.textColor(p.theme.TextSecondary)
	if row.Rank == 1 {
		p.textColor(p.theme.Savings)
	}
	p.cell(x, y, widths[0], tableRowHeight, strconv.Itoa(row.Rank), "C")
	x += widths[0]

	// Catégorie
	p.fillColor(row.Category.Color)
	p.pdf.Circle(x+10, y+tableRowHeight/2, 3.5, "F")
	name := row.Category.Name
	if p.fonts.unicode && row.Category.Icon != "" {
		if icon := strings.TrimSpace(p.tr(row.Category.Icon)); icon != "" {
			name = icon + " " + name
		}
	}
	p.font("", 9)
	p.textColor(p.theme.TextPrimary)
	p.cell(x+18, y, widths[1]-22, tableRowHeight, p.fit(name, widths[1]-24), "L")
	x += widths[1]

	// Montant
	p.font("B", 9)
	p.cell(x, y, widths[2]-4, tableRowHeight, core.FormatCurrency(row.Category.Total), "R")
	x += widths[2]

	// % Total
	p.font("", 9)
	p.textColor(p.theme.TextSecondary)
	p.cell(x, y, widths[3], tableRowHeight, strconv.Itoa(row.PercentOfTotal)+"%", "C")
	x += widths[3]

	// Variation
	p.font("B", 8)
	p.textColor(p.theme.VariationColor(row.Variation))
	p.cell(x, y, widths[4], tableRowHeight, row.Variation.Label(), "C")
	x += widths[4]

	// Évol.
	p.rankDelta(row.RankDelta, x, y, widths[5])
}

// rankDelta draws a triangle and the number of places moved, "=" when the
// rank is unchanged and "Nouveau" for categories absent last month.
func (p *page) rankDelta(d RankDelta, x, y, w float64) {
	color := p.theme.RankDeltaColor(d)
	p.textColor(color)
	switch d.Kind {
	case RankNew:
		p.font("", 7)
		p.cell(x, y, w, tableRowHeight, labelNew, "C")
		return
	case RankUnchanged:
		p.font("B", 9)
		p.cell(x, y, w, tableRowHeight, labelUnchanged, "C")
		return
	}

	p.font("B", 8)
	label := strconv.Itoa(d.Magnitude())
	textW := p.pdf.GetStringWidth(p.tr(label))
	const tri = 6.0
	start := x + (w-tri-2-textW)/2
	cy := y + tableRowHeight/2
	var pts []fpdf.PointType
	if d.Up() {
		pts = []fpdf.PointType{{X: start, Y: cy + tri/2}, {X: start + tri, Y: cy + tri/2}, {X: start + tri/2, Y: cy - tri/2}}
	} else {
		pts = []fpdf.PointType{{X: start, Y: cy - tri/2}, {X: start + tri, Y: cy - tri/2}, {X: start + tri/2, Y: cy + tri/2}}
	}
	p.fillColor(color)
	p.pdf.Polygon(pts, "F")
	p.cell(start+tri+2, y, textW+1, tableRowHeight, label, "L")
}

func (p *page) footerTop() float64 {
	return p.height - footerOffset - 8
}

// insights draws the bullets when there is room above the footer; it
// reports whether the block was drawn.
func (p *page) insights(items []Insight, y float64) bool {
	if len(items) == 0 {
		return false
	}
	textW := p.contentWidth - 16
	p.font("", 9)
	wrapped := make([][]string, len(items))
	needed := 20.0
	for i, in := range items {
		wrapped[i] = p.wrap(in.Text, textW)
		needed += float64(len(wrapped[i]))*insightLineHeight + 6
	}
	if y+needed > p.footerTop()-6 {
		return false
	}

	y = p.sectionTitle("Analyse", y)
	for i, in := range items {
		p.fillColor(p.theme.ToneColor(in.Tone))
		p.pdf.Circle(marginLeft+4, y+insightLineHeight/2, 2.5, "F")
		p.font("", 9)
		p.textColor(p.theme.TextPrimary)
		for _, line := range wrapped[i] {
			p.cell(marginLeft+16, y, textW, insightLineHeight, line, "L")
			y += insightLineHeight
		}
		y += 6
	}
	return true
}

func (p *page) footer(now time.Time, productURL string) {
	top := p.footerTop()
	p.drawColor(p.theme.TableLine)
	p.pdf.SetLineWidth(0.5)
	p.pdf.Line(marginLeft, top, p.width-marginRight, top)
	p.font("", 8)
	p.textColor(p.theme.TextMuted)
	p.cell(marginLeft, top+6, p.contentWidth/2, 10, "Généré le "+core.FormatLongDate(now), "L")
	p.textColor(p.theme.Accent)
	p.cell(marginLeft+p.contentWidth/2, top+6, p.contentWidth/2, 10, productURL, "R")
}
