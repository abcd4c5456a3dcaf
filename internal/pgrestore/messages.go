package pgrestore

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// translations maps the fixed diagnostics of the driver and the archive
// engine to their localized text. Keys are the exact format strings.
var translations = map[language.Tag]map[string]string{
	language.German: {
		"archiver":      "Archivierer",
		"archiver (db)": "Archivierer (DB)",

		"WARNING: errors ignored on restore: %d\n":                    "WARNUNG: bei Wiederherstellung ignorierte Fehler: %d\n",
		"Try \"%s --help\" for more information.\n":                   "Versuchen Sie »%s --help« für weitere Informationen.\n",
		"too many command-line arguments (first is \"%s\")\n":         "zu viele Kommandozeilenargumente (das erste ist »%s«)\n",
		"options -d/--dbname and -f/--file cannot be used together\n":  "Optionen -d/--dbname und -f/--file können nicht zusammen verwendet werden\n",
		"cannot specify both --single-transaction and multiple jobs\n": "--single-transaction und mehrere Jobs können nicht zusammen verwendet werden\n",
		"unrecognized section name: \"%s\"\n":                          "unbekannter Abschnittsname: »%s«\n",
		"could not open input file \"%s\": %v\n":                      "konnte Eingabedatei »%s« nicht öffnen: %v\n",
		"connection to database \"%s\" failed: %v\n":                  "Verbindung zur Datenbank »%s« fehlgeschlagen: %v\n",
		"error from TOC entry %d; %s: %v\n":                           "Fehler in Inhaltsverzeichniseintrag %d; %s: %v\n",
		"processing item %d %s\n":                                     "verarbeite Element %d %s\n",
		"a worker ended with exit code %d\n":                          "ein Worker endete mit Exit-Code %d\n",
	},
}

// Messages is the catalog of localized diagnostics.
var Messages catalog.Catalog = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			// keys and messages are static; SetString only fails on a malformed tag
			_ = b.SetString(tag, key, msg)
		}
	}
	return b
}

// NewPrinter returns a printer that localizes diagnostics for tag. Messages
// without a translation keep their English text; numbers follow tag.
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(Messages))
}
