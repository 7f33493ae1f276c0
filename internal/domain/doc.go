// Package domain models Christmas Bird Count (CBC) historical results.
//
// # Data Source
//
// Circle compilers download "Historical Results by Count" from the Audubon CBC
// site. The export is a spreadsheet-style report dumped as CSV (or delivered as
// an .xlsx workbook that is flattened to CSV upstream). One file interleaves
// several logically separate tables in a single grid with no shared schema.
//
// # Export Conventions
//
// Count index:
//
//	Every count season is numbered. Count 98 is the 1997–98 season, held in
//	December 1997. The index is the only reliable join key between sections;
//	years and dates are derived from it.
//
// Composite species header:
//
//	"1997 [98]\nCount Date: 12/19/1997\n# Participants: 42\n# Species Reported: 87\nTotal Hrs.: 6.5"
//	The first line carries year and count index; the remaining labeled lines
//	are optional and appear in any order.
//
// Sections (located by content, never by position):
//
//	Circle identity     CircleName,Abbrev,Lat/Lon row, values on the next row
//	Compiler details    header tokens or inline "Compiler Email: ..." labels
//	Weather             Year,Low Temp.,High Temp.,AM Clouds,PM Clouds,AM Rain,PM Rain,AM Snow,PM Snow
//	Participants/effort CountYear,Count Date,Num. Participants,Num. Hours,Num. Species Reported
//	Species matrix      COM_NAME,CountYear,how_many (one row per species and year)
//
// Temperatures:
//
//	Cells read "28.4 Fahrenheit", "41F" or "-2.0 Celsius". The first number is
//	taken; Celsius values are converted so every temperature is Fahrenheit.
//
// Count-week marker:
//
//	"cw" in a count cell means the species was seen during count week but not
//	on count day. It is recorded as 0.
//
// # Report IDs
//
// Report IDs are the lower-cased circle code plus a SHA-256 prefix of the raw
// export bytes, so re-uploading a file maps to the same report. See [NewReport].
package domain
