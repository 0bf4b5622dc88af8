package render

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"toolbox/internal/calculator"
	"toolbox/internal/engagement"
	"toolbox/internal/history"
	"toolbox/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", Text, false},
		{"TEXT", Text, false},
		{"json", JSON, false},
		{"yml", YAML, false},
		{" yaml ", YAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestTimeAgo(t *testing.T) {
	t.Parallel()
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "0m ago"},
		{3*time.Minute + 20*time.Second, "3m ago"},
		{59 * time.Minute, "59m ago"},
		{60 * time.Minute, "1h ago"},
		{2*time.Hour + 59*time.Minute, "2h ago"},
		{24 * time.Hour, "1d ago"},
		{4*24*time.Hour + 5*time.Hour, "4d ago"},
		{-time.Hour, "0m ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeAgo(now.Add(-tt.ago), now), tt.ago.String())
	}
	assert.Equal(t, NoDate, TimeAgo(time.Time{}, now))
}

func TestDate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, NoDate, Date(time.Time{}))
	assert.Equal(t, NoDate, DateTime(time.Time{}))
	d := time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)
	assert.Equal(t, "March 15, 2024", Date(d))
}

func TestSanitizer(t *testing.T) {
	t.Parallel()
	s := NewSanitizer()
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"<b>bold</b> move", "bold move"},
		{`<script>alert("x")</script>hi`, "hi"},
		{"5 &lt; 6 &amp; 7 > 2", "5 < 6 & 7 > 2"},
		{"bell\x07 and\x1b[31m red", "bell and[31m red"},
		{"line one\nline two", "line one\nline two"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Clean(tt.in), tt.in)
	}
	assert.Equal(t, "a b c", s.Line("a\n  b\t\tc"))
}

func samplePosts() []models.Post {
	likes := 2
	return []models.Post{
		{
			MongoID:    "p1",
			Author:     models.RefToUser(models.User{MongoID: "u2", Username: "bob"}),
			Content:    "Steel <i>beam</i> sizing",
			Likes:      []models.Ref{{ID: "u1"}, {ID: "u3"}},
			LikesCount: &likes,
			CreatedAt:  models.At(now.Add(-3 * time.Minute)),
		},
		{MongoID: "p2", Username: "carol", Content: "Pump curves", CreatedAt: models.At(now.Add(-50 * time.Hour))},
	}
}

func TestPosts_Text(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := New(&buf, Text, WithClock(clock), WithViewer(&models.User{MongoID: "u1", Username: "alice"}))

	require.NoError(t, p.Posts("Engineering ToolBox Posts", samplePosts(), engagement.NewSavedSet("p2")))
	out := buf.String()
	assert.Contains(t, out, "Engineering ToolBox Posts")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "3m ago")
	assert.Contains(t, out, "2d ago")
	assert.Contains(t, out, "Steel beam sizing")
	assert.NotContains(t, out, "<i>")
	assert.Contains(t, out, "♥")
	assert.Contains(t, out, "★")
}

func TestPosts_Empty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, New(&buf, Text).Posts("Your Posts", nil, nil))
	assert.Equal(t, "Your Posts\nNo posts yet.\n", buf.String())
}

func TestPosts_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, New(&buf, JSON).Posts("ignored", samplePosts(), nil))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0]["_id"])
	assert.Equal(t, "Steel <i>beam</i> sizing", got[0]["content"], "structured output is not sanitized")
}

func TestPosts_YAMLKeepsJSONNamesAndOrder(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, New(&buf, YAML).Posts("ignored", samplePosts()[1:], nil))
	out := buf.String()

	assert.Contains(t, out, "- _id: p2\n")
	assert.Contains(t, out, "  username: carol\n")
	assert.Contains(t, out, "  createdAt: \"2024-05-08T10:00:00Z\"\n")
	assert.NotContains(t, out, "{")

	var back []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "Pump curves", back[0]["content"])
}

func TestYAML_QuotesAmbiguousStrings(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, New(&buf, YAML).Value(map[string]string{"a": "true", "b": "42"}))

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "true", back["a"])
	assert.Equal(t, "42", back["b"])
}

func TestThreads_Text(t *testing.T) {
	t.Parallel()
	threads := []models.Thread{
		{
			Comment: models.Comment{MongoID: "c1", Username: "bob", Content: "Root", CreatedAt: models.At(now)},
			Replies: []models.Comment{{MongoID: "c2", Username: "alice", Content: "Reply", IsEdited: true}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, New(&buf, Text).Threads(threads))
	out := buf.String()

	assert.Contains(t, out, "Comments (2)")
	assert.Contains(t, out, "bob · ")
	assert.Contains(t, out, "    ↳ alice · — (edited) [c2]")
	assert.Contains(t, out, "      Reply")
}

func TestThreads_Empty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, New(&buf, Text).Threads(nil))
	assert.Contains(t, buf.String(), "No comments yet. Be the first to comment!")
}

func TestChat_Text(t *testing.T) {
	t.Parallel()
	me := models.User{MongoID: "u1", Username: "alice"}
	chat := models.Chat{
		MongoID:      "ch1",
		Participants: []models.User{me, {MongoID: "u2", Username: "bob"}},
		Messages: []models.Message{
			{Sender: models.RefTo("u1"), Content: "hi"},
			{Sender: models.RefTo("u2"), Content: "hello"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, New(&buf, Text, WithViewer(&me)).Chat(chat))
	out := buf.String()

	assert.Contains(t, out, "Chat with bob")
	assert.Contains(t, out, "you: hi")
	assert.Contains(t, out, "them: hello")
}

func TestFormulaAndResult_Text(t *testing.T) {
	t.Parallel()
	f := models.Formula{
		MongoID: "ohms-law", Name: "Ohm's Law", Category: "ELECTRICAL", Difficulty: "Beginner", Formula: "V = I × R",
		Variables: []models.Variable{
			{Key: "V", Name: "Voltage", Unit: "V"},
			{Key: "R", Name: "Resistance", Unit: "Ω", Constraints: models.Constraints{MustBePositive: true}},
		},
	}
	var buf bytes.Buffer
	p := New(&buf, Text)
	require.NoError(t, p.Formula(f, []models.CalculationOption{{OutputVariable: "V", RequiredInputs: []string{"I", "R"}}}))
	assert.Contains(t, buf.String(), "V  from I, R")
	assert.Contains(t, buf.String(), "> 0")

	buf.Reset()
	require.NoError(t, p.Result(&f, models.CalculationResult{
		OutputVariable: "V", Inputs: map[string]float64{"R": 5, "I": 2}, Result: 10,
	}))
	assert.Equal(t, "  I = 2\n  R = 5 Ω\nV = 10 V\n", buf.String())
}

func TestHistoryAndBasic_Text(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := New(&buf, Text, WithClock(clock))
	require.NoError(t, p.History([]*history.Record{
		{Kind: history.KindBasic, Expression: "2 + 3 = 5", Result: 5, CreatedAt: now.Add(-2 * time.Hour)},
		{Kind: history.KindFormula, FormulaName: "Ohm's Law", OutputVariable: "V", Inputs: map[string]float64{"I": 2, "R": 5}, Result: 10, CreatedAt: now},
	}))
	out := buf.String()
	assert.Contains(t, out, "2h ago")
	assert.Contains(t, out, "2 + 3 = 5")
	assert.Contains(t, out, "Ohm's Law: V = 10 (I=2, R=5)")

	buf.Reset()
	require.NoError(t, p.Basic("5", []calculator.Entry{{Expression: "2 + 3 = 5", Result: 5}}))
	assert.Equal(t, "2 + 3 = 5\n", buf.String())
}

func TestMessage(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, New(&buf, JSON).Message("Post deleted"))
	assert.JSONEq(t, `{"message":"Post deleted"}`, buf.String())
}
