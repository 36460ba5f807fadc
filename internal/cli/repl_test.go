package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-admin-agent/internal/agent"
	"github.com/noah-isme/campus-admin-agent/internal/tools"
)

type fakeAsker struct {
	queries []string
	fail    map[string]error
}

func (f *fakeAsker) Ask(_ context.Context, utterance string) (agent.Reply, error) {
	f.queries = append(f.queries, utterance)
	if err, ok := f.fail[utterance]; ok {
		return agent.Reply{}, err
	}
	return agent.Reply{Text: "answer to " + utterance}, nil
}

func bannerTools() []tools.Tool {
	return []tools.Tool{
		{Name: "add_student", Group: tools.GroupStudentManagement},
		{Name: "get_student", Group: tools.GroupStudentManagement},
		{Name: "get_total_students", Group: tools.GroupCampusAnalytics},
		{Name: "get_library_hours", Group: tools.GroupCampusInfo},
	}
}

func TestREPLAnswersUntilQuit(t *testing.T) {
	asker := &fakeAsker{}
	var out bytes.Buffer
	in := strings.NewReader("how many students?\n\n  \nQUIT\nnever asked\n")

	err := New(asker, bannerTools(), zerolog.Nop()).Run(context.Background(), in, &out)
	require.NoError(t, err)
	require.Equal(t, []string{"how many students?"}, asker.queries)

	output := out.String()
	require.Contains(t, output, "Campus Admin Assistant")
	require.Contains(t, output, "- Student Management: add_student, get_student")
	require.Contains(t, output, "- Analytics: get_total_students")
	require.NotContains(t, output, "Notifications")
	require.Contains(t, output, "Assistant: answer to how many students?")
	require.Contains(t, output, "Goodbye!")
}

func TestREPLContinuesAfterFailedTurn(t *testing.T) {
	asker := &fakeAsker{fail: map[string]error{"break": errors.New("model unavailable")}}
	var out bytes.Buffer
	in := strings.NewReader("break\nlist students\n")

	err := New(asker, bannerTools(), zerolog.Nop()).Run(context.Background(), in, &out)
	require.NoError(t, err)
	require.Equal(t, []string{"break", "list students"}, asker.queries)
	require.Contains(t, out.String(), "Error: model unavailable")
	require.Contains(t, out.String(), "Assistant: answer to list students")
}

func TestREPLEndsOnEOF(t *testing.T) {
	asker := &fakeAsker{}
	var out bytes.Buffer

	err := New(asker, nil, zerolog.Nop()).Run(context.Background(), strings.NewReader(""), &out)
	require.NoError(t, err)
	require.Empty(t, asker.queries)
	require.Contains(t, out.String(), "Goodbye!")
}

func TestREPLStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader, writer := io.Pipe()
	defer writer.Close()

	var out bytes.Buffer
	err := New(&fakeAsker{}, nil, zerolog.Nop()).Run(ctx, reader, &out)
	require.NoError(t, err)
}
