package reference

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclimate/harmonize/internal/frame"
)

const dictCSV = `wrong,right,code
 Germany , Germany ,DEU
Federal Republic of Germany,Germany,DEU
Namibia,Namibia,NAM
Bahamas The,Bahamas,BHS
Bahamas,Bahamas,BHS
Viet Nam,Vietnam,VNM
Viet Nam,Viet Nam,VNM
Côte d'Ivoire,Côte d'Ivoire,CIV
`

func testDictionary(t *testing.T) *Dictionary {
	t.Helper()
	d, err := ParseDictionary([]byte(dictCSV))
	require.NoError(t, err)
	return d
}

func TestDictionary_Harmonize(t *testing.T) {
	d := testDictionary(t)

	assert.Equal(t, "Germany", d.Harmonize("Federal Republic of Germany"))
	assert.Equal(t, "Germany", d.Harmonize("Germany"))
	assert.Equal(t, "Bahamas", d.Harmonize("Bahamas The"))
	assert.Equal(t, "Atlantis", d.Harmonize("Atlantis"))

	// last duplicate wins
	assert.Equal(t, "Viet Nam", d.Harmonize("Viet Nam"))
	assert.True(t, d.IsCanonical("Vietnam"))
}

func TestDictionary_CheckAllMatch(t *testing.T) {
	d := testDictionary(t)

	require.NoError(t, d.CheckAllMatch("country", []string{"Germany", "Namibia"}))

	err := d.CheckAllMatch("country_harmonized", []string{"Germany", "Atlantis", "Lemuria", "Atlantis"})
	var unmatched *UnmatchedNamesError
	require.True(t, errors.As(err, &unmatched))
	assert.Equal(t, []string{"Atlantis", "Lemuria"}, unmatched.Names)
	assert.Contains(t, err.Error(), "country_harmonized")
}

func TestParseDictionary_BadHeader(t *testing.T) {
	_, err := ParseDictionary([]byte("name,code\nGermany,DEU\n"))
	assert.Error(t, err)

	_, err = ParseDictionary([]byte("wrong,right\n"))
	assert.Error(t, err)
}

func TestReadISOCodes(t *testing.T) {
	data := []byte(`English short name,French short name,Alpha-2 code,Alpha-3 code,Numeric
Namibia,Namibie (la),NA,NAM,516
Germany,Allemagne (l'),DE,DEU,276
`)

	df, err := ReadISOCodes(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"country", "country_french", "iso2", "iso3"}, df.Names())

	iso2, err := frame.Strings(df, "iso2")
	require.NoError(t, err)
	assert.Equal(t, []string{"NA", "DE"}, iso2)
}

func TestReadISOCodes_MissingColumn(t *testing.T) {
	_, err := ReadISOCodes([]byte("English short name,Alpha-3 code\nGermany,DEU\n"))
	assert.Error(t, err)
}

func TestReadActors(t *testing.T) {
	d := testDictionary(t)
	data := []byte(`actor_id,type,name
DE,country,Federal Republic of Germany
NA,country,Namibia
XX,country,Germany
`)

	df, err := ReadActors(data, d)
	require.NoError(t, err)
	assert.Equal(t, []string{"actor_id", "name"}, df.Names())

	ids, _ := frame.Strings(df, "actor_id")
	names, _ := frame.Strings(df, "name")
	assert.Equal(t, []string{"DE", "NA"}, ids)
	assert.Equal(t, []string{"Germany", "Namibia"}, names)
}

func TestReadActorTable_KeepsColumns(t *testing.T) {
	d := testDictionary(t)
	data := []byte(`actor_id,type,name,is_part_of
DE,country,Federal Republic of Germany,EARTH
NA,country,Namibia,EARTH
XX,country,Germany,EARTH
`)

	df, err := ReadActorTable(data, d)
	require.NoError(t, err)
	assert.Equal(t, []string{"actor_id", "type", "name", "is_part_of"}, df.Names())
	assert.Equal(t, 2, df.Nrow())

	names, _ := frame.Strings(df, "name")
	assert.Equal(t, []string{"Germany", "Namibia"}, names)
	parents, _ := frame.Strings(df, "is_part_of")
	assert.Equal(t, []string{"EARTH", "EARTH"}, parents)

	_, err = ReadActorTable([]byte("id,name\nDE,Germany\n"), d)
	assert.Error(t, err)
}

func TestFindInCSV(t *testing.T) {
	record, err := FindInCSV(strings.NewReader(dictCSV), "Bahamas")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bahamas The", "Bahamas", "BHS"}, record)

	_, err = FindInCSV(strings.NewReader(dictCSV), "Swaziland")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = FindInCSV(strings.NewReader(dictCSV), "(")
	assert.Error(t, err)
}
