package cobol_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/tracegraph/inspector/cobol"
	"github.com/viant/tracegraph/inspector/document"
)

const customerProgram = `       IDENTIFICATION DIVISION.
       PROGRAM-ID. CUSTPROC.
       AUTHOR. J SMITH.
       ENVIRONMENT DIVISION.
       INPUT-OUTPUT SECTION.
       FILE-CONTROL.
           SELECT CUST-IN ASSIGN TO 'CUSTIN.DAT'.
           SELECT CUST-OUT ASSIGN TO CUSTOUT.
       DATA DIVISION.
       FILE SECTION.
       FD CUST-IN.
       01 CUST-IN-REC.
          05 CUST-ID PIC 9(5).
          05 CUST-NAME PIC X(30).
       FD CUST-OUT.
       01 CUST-OUT-REC.
          05 OUT-ID PIC 9(5).
          05 FILLER PIC X(5).
       WORKING-STORAGE SECTION.
       01 WS-FLAGS.
          05 WS-EOF PIC X VALUE 'N'.
             88 EOF VALUE 'Y'.
       PROCEDURE DIVISION.
       0000-MAIN.
           PERFORM 1000-INIT.
           PERFORM 2000-PROCESS UNTIL WS-EOF = 'Y'.
           STOP RUN.
       1000-INIT.
           OPEN INPUT CUST-IN OUTPUT CUST-OUT.
       2000-PROCESS.
           READ CUST-IN AT END MOVE 'Y' TO WS-EOF.
           MOVE CUST-ID TO OUT-ID.
           WRITE CUST-OUT-REC.
`

const fixedProgram = `000100 IDENTIFICATION DIVISION.
000200 PROGRAM-ID. LOADSALE.
000300* PERFORM 9999-NOWHERE IS ONLY A COMMENT
000400 PROCEDURE DIVISION.
000500 MAIN-LOGIC SECTION.
000600 0000-START.
000700     PERFORM 1000-READ THRU 1000-EXIT.
000800     CALL 'AUDITLOG' USING WS-REC.
000900     STOP RUN.
001000 1000-READ.
001100     EXEC SQL
001200         INSERT INTO SALES.DAILY_TOTALS SELECT * FROM SALES.ORDERS
001300     END-EXEC.
001400 1000-EXIT.
001500     EXIT.
`

type dependency struct {
	from string
	to   string
	kind document.DependencyType
}

func dependencies(doc *document.Document) []dependency {
	var result []dependency
	for _, dep := range doc.Dependencies {
		result = append(result, dependency{from: dep.From, to: dep.To, kind: dep.Type})
	}
	return result
}

func TestInspector_InspectSource(t *testing.T) {
	tests := []struct {
		name             string
		source           string
		wantID           string
		wantAuthor       string
		wantComponents   []string
		wantSources      []string
		wantEntities     []string
		wantDependencies []dependency
	}{
		{
			name:           "paragraphs files and records",
			source:         customerProgram,
			wantID:         "CUSTPROC",
			wantAuthor:     "J SMITH",
			wantComponents: []string{"0000-MAIN", "1000-INIT", "2000-PROCESS"},
			wantSources:    []string{"CUST-IN", "CUST-OUT"},
			wantEntities:   []string{"CUST-IN-REC", "CUST-OUT-REC", "WS-FLAGS"},
			wantDependencies: []dependency{
				{from: "0000-MAIN", to: "1000-INIT", kind: document.Precedes},
				{from: "0000-MAIN", to: "2000-PROCESS", kind: document.Precedes},
				{from: "2000-PROCESS", to: "CUST-IN", kind: document.ReadsFrom},
				{from: "2000-PROCESS", to: "CUST-OUT", kind: document.WritesTo},
			},
		},
		{
			name:           "fixed format with sections and embedded sql",
			source:         fixedProgram,
			wantID:         "LOADSALE",
			wantComponents: []string{"MAIN-LOGIC", "0000-START", "1000-READ", "1000-EXIT"},
			wantEntities:   []string{"ORDERS", "DAILY_TOTALS"},
			wantDependencies: []dependency{
				{from: "0000-START", to: "1000-READ", kind: document.Precedes},
				{from: "0000-START", to: "1000-EXIT", kind: document.Precedes},
				{from: "1000-READ", to: "SALES.ORDERS", kind: document.ReadsFrom},
				{from: "1000-READ", to: "SALES.DAILY_TOTALS", kind: document.WritesTo},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inspector := cobol.NewInspector(nil)
			doc, err := inspector.InspectSource("prog.cbl", []byte(tt.source))
			require.NoError(t, err)

			assert.Equal(t, tt.wantID, doc.Metadata.ID)
			assert.Equal(t, document.FormatLegacyProgram, doc.Metadata.Format)
			assert.Equal(t, tt.wantAuthor, doc.Metadata.Author)

			var components []string
			for _, component := range doc.Components {
				components = append(components, component.ID)
			}
			assert.Equal(t, tt.wantComponents, components)

			var sources []string
			for _, source := range doc.DataSources {
				sources = append(sources, source.ID)
				assert.Equal(t, document.SourceFile, source.Type)
			}
			assert.Equal(t, tt.wantSources, sources)

			var entities []string
			for _, entity := range doc.DataEntities {
				entities = append(entities, entity.Name)
			}
			assert.ElementsMatch(t, tt.wantEntities, entities)
			assert.ElementsMatch(t, tt.wantDependencies, dependencies(doc))
		})
	}
}

func TestInspector_Details(t *testing.T) {
	inspector := cobol.NewInspector(nil)

	doc, err := inspector.InspectSource("prog.cbl", []byte(customerProgram))
	require.NoError(t, err)

	assert.Equal(t, "CUSTIN.DAT", doc.DataSources[0].FilePath)
	record := doc.DataEntities[0]
	assert.Equal(t, []string{"CUST-ID", "CUST-NAME"}, record.Columns)
	assert.Equal(t, "CUST-IN", record.Properties["file"])
	assert.Equal(t, []string{"OUT-ID"}, doc.DataEntities[1].Columns)
	assert.Equal(t, []string{"READ CUST-IN", "WRITE CUST-OUT-REC"}, doc.LookupComponent("2000-PROCESS").Operations())

	fixed, err := inspector.InspectSource("loadsale.cob", []byte(fixedProgram))
	require.NoError(t, err)
	assert.Equal(t, []string{"AUDITLOG"}, fixed.Metadata.Attributes["calls"])
	start := fixed.LookupComponent("0000-START")
	require.NotNil(t, start)
	assert.Equal(t, "MAIN-LOGIC", start.Properties["section"])
	assert.Equal(t, cobol.TypeSection, fixed.LookupComponent("MAIN-LOGIC").Type)
	assert.Contains(t, fixed.LookupComponent("1000-READ").Operations()[0], "SQL: INSERT INTO SALES.DAILY_TOTALS")
	assert.Nil(t, fixed.LookupComponent("9999-NOWHERE"))
}

func TestInspector_ContinuationLines(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{
			name: "free format",
			source: `       IDENTIFICATION DIVISION.
       PROGRAM-ID. TOTALS.
       PROCEDURE DIVISION.
       0000-MAIN.
           DISPLAY 'TOTAL IS '
               WS-TOTAL.
           PERFORM 1000-INIT.
       1000-INIT.
           MOVE 0 TO WS-TOTAL.
`,
		},
		{
			name: "fixed format",
			source: `000100 IDENTIFICATION DIVISION.
000200 PROGRAM-ID. TOTALS.
000300 PROCEDURE DIVISION.
000400 0000-MAIN.
000500     DISPLAY 'TOTAL IS '
000600         WS-TOTAL.
000700     PERFORM 1000-INIT.
000800 1000-INIT.
000900     MOVE 0 TO WS-TOTAL.
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := cobol.NewInspector(nil).InspectSource("totals.cbl", []byte(tt.source))
			require.NoError(t, err)
			var components []string
			for _, component := range doc.Components {
				components = append(components, component.ID)
			}
			assert.Equal(t, []string{"0000-MAIN", "1000-INIT"}, components)
			assert.Equal(t, []string{"PERFORM 1000-INIT"}, doc.LookupComponent("0000-MAIN").Operations())
			assert.Equal(t, []dependency{{from: "0000-MAIN", to: "1000-INIT", kind: document.Precedes}}, dependencies(doc))
		})
	}
}

func TestInspector_Malformed(t *testing.T) {
	inspector := cobol.NewInspector(nil)
	_, err := inspector.InspectSource("notes.cbl", []byte("just some notes\nwithout structure\n"))
	assert.True(t, errors.Is(err, document.ErrMalformedSource))
}

func TestInspector_CanInspect(t *testing.T) {
	inspector := cobol.NewInspector(nil)
	assert.True(t, inspector.CanInspect("a/PROG.CBL", nil))
	assert.True(t, inspector.CanInspect("prog.cob", nil))
	assert.False(t, inspector.CanInspect("prog.jcl", nil))
}
