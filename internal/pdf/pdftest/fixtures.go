package pdftest

// Letter page size in points.
const (
	LetterWidth  = 612
	LetterHeight = 792
)

// NameAndSign is a two page letter document with a text field "Name" on the
// first page and a signature field "Sign" on the second.
func NameAndSign() []byte {
	return Build(
		Page{
			Width:   LetterWidth,
			Height:  LetterHeight,
			Content: "BT /F1 14 Tf 72 740 Td (Employment agreement) Tj ET\n0 0 0 RG 1 w 72 690 m 540 690 l S",
			Widgets: []Widget{
				{Name: "Name", Type: Text, Rect: [4]float64{100, 700, 300, 724}, Tooltip: "Full name"},
			},
		},
		Page{
			Width:   LetterWidth,
			Height:  LetterHeight,
			Content: "BT /F1 12 Tf 72 200 Td (Signature) Tj ET",
			Widgets: []Widget{
				{Name: "Sign", Type: Signature, Rect: [4]float64{100, 100, 300, 150}},
			},
		},
	)
}

// KitchenSink is a single page holding one widget of every supported kind plus
// annotations that must be ignored: a hidden text field, a link, a radio button
// and a push button.
func KitchenSink() []byte {
	return Build(Page{
		Width:   LetterWidth,
		Height:  LetterHeight,
		Content: "0.9 g 50 50 512 692 re f\n0 0 1 RG 2 w 50 50 512 692 re S",
		Widgets: []Widget{
			{Name: "FullName", Type: Text, Rect: [4]float64{100, 700, 300, 724}, Value: "(Ada)"},
			{Name: "Agree", Type: Button, Rect: [4]float64{100, 650, 120, 670}},
			{Name: "Country", Type: Choice, FieldFlags: FlagCombo, Rect: [4]float64{100, 600, 250, 620},
				Options: []string{"Canada", "Mexico", "USA"}},
			{Name: "Signature", Type: Signature, Rect: [4]float64{300, 100, 500, 160}},
			{Name: "Internal", Type: Text, Flags: FlagHidden, Rect: [4]float64{400, 700, 500, 720}, Value: "(secret)"},
			{Subtype: "Link", Rect: [4]float64{10, 10, 60, 30}},
			{Name: "Choice", Type: Button, FieldFlags: FlagRadio, Rect: [4]float64{100, 550, 115, 565}},
			{Name: "Submit", Type: Button, FieldFlags: FlagPushButton, Rect: [4]float64{100, 500, 180, 520}},
		},
	})
}
