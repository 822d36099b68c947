package main

import (
	"wave-portal-tui/styles"
)

// -------------------- THEME (Lip Gloss) --------------------
// Styles come from the styles package; the views share them

var (
	cBorder  = styles.CBorder
	cMuted   = styles.CMuted
	cText    = styles.CText
	cAccent  = styles.CAccent
	cAccent2 = styles.CAccent2
	cWarn    = styles.CWarn

	appStyle   = styles.AppStyle
	titleStyle = styles.TitleStyle
	panelStyle = styles.PanelStyle

	dialogBoxStyle    = styles.DialogStyle
	buttonStyle       = styles.ButtonStyle
	activeButtonStyle = styles.ActiveButtonStyle
	dimStyle          = styles.DimStyle
	okStyle           = styles.OKStyle
	errorStyle        = styles.ErrorStyle
	warningStyle      = styles.WarnStyle
)
