package render

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"toolbox/internal/calculator"
	"toolbox/internal/engagement"
	"toolbox/internal/history"
	"toolbox/internal/identity"
	"toolbox/internal/models"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

func (p *Printer) author(e identity.Authored) string {
	return p.clean.Line(identity.DisplayName(e, p.me))
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// PostState is the viewer's engagement with a post.
type PostState struct {
	Liked bool
	Saved bool
}

// Posts prints a feed under title.
func (p *Printer) Posts(title string, posts []models.Post, saved engagement.SavedSet) error {
	return p.emit(posts, func(w io.Writer) {
		fmt.Fprintln(w, title)
		if len(posts) == 0 {
			fmt.Fprintln(w, "No posts yet.")
			return
		}
		tw := table(w)
		fmt.Fprintln(tw, "ID\tAUTHOR\tWHEN\tLIKES\t\tCONTENT")
		uid := identity.CanonicalID(p.me)
		for _, post := range posts {
			marks := ""
			if engagement.IsLiked(post, uid) {
				marks += "♥"
			}
			if engagement.IsSaved(post.Key(), saved) {
				marks += "★"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
				post.Key(), p.author(post), TimeAgo(post.CreatedAt.Time, p.now()),
				engagement.LikeCount(post), marks, excerpt(p.clean.Line(post.Content), 60))
		}
		tw.Flush()
	})
}

// Post prints one post in full.
func (p *Printer) Post(post models.Post, st PostState) error {
	return p.emit(post, func(w io.Writer) {
		fmt.Fprintf(w, "%s · %s\n", p.author(post), DateTime(post.CreatedAt.Time))
		if !post.UpdatedAt.IsZero() && post.UpdatedAt.After(post.CreatedAt.Time) {
			fmt.Fprintf(w, "(edited %s)\n", TimeAgo(post.UpdatedAt.Time, p.now()))
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, p.clean.Clean(post.Content))
		if len(post.Tags) > 0 {
			tags := make([]string, 0, len(post.Tags))
			for _, t := range post.Tags {
				tags = append(tags, "#"+p.clean.Line(t))
			}
			fmt.Fprintln(w, strings.Join(tags, " "))
		}
		fmt.Fprintln(w)
		like, save := "Like", "Save"
		if st.Liked {
			like = "Liked"
		}
		if st.Saved {
			save = "Saved"
		}
		fmt.Fprintf(w, "%s (%d) · %s · id %s\n", like, engagement.LikeCount(post), save, post.Key())
	})
}

// Threads prints a comment section. Replies are indented under their root.
func (p *Printer) Threads(threads []models.Thread) error {
	return p.emit(threads, func(w io.Writer) {
		n := 0
		for _, t := range threads {
			n += 1 + len(t.Replies)
		}
		fmt.Fprintf(w, "Comments (%d)\n", n)
		if n == 0 {
			fmt.Fprintln(w, "No comments yet. Be the first to comment!")
			return
		}
		for _, t := range threads {
			p.comment(w, t.Comment, "")
			for _, r := range t.Replies {
				p.comment(w, r, "    ↳ ")
			}
		}
	})
}

func (p *Printer) comment(w io.Writer, c models.Comment, indent string) {
	edited := ""
	if c.IsEdited {
		edited = " (edited)"
	}
	fmt.Fprintf(w, "%s%s · %s%s [%s]\n", indent, p.author(c), Date(c.CreatedAt.Time), edited, c.Key())
	pad := strings.Repeat(" ", len([]rune(indent)))
	for _, line := range strings.Split(p.clean.Clean(c.Content), "\n") {
		fmt.Fprintf(w, "%s  %s\n", pad, line)
	}
}

// otherName names the chat counterpart of the viewer.
func (p *Printer) otherName(chat models.Chat) string {
	for i := range chat.Participants {
		if !identity.SameUser(&chat.Participants[i], p.me) {
			return p.clean.Line(chat.Participants[i].Username)
		}
	}
	return identity.Anonymous
}

// Chats prints the conversation list.
func (p *Printer) Chats(chats []models.Chat) error {
	return p.emit(chats, func(w io.Writer) {
		if len(chats) == 0 {
			fmt.Fprintln(w, "No conversations yet.")
			return
		}
		tw := table(w)
		fmt.Fprintln(tw, "ID\tWITH\tUPDATED\tLAST MESSAGE")
		for _, c := range chats {
			last := ""
			if len(c.Messages) > 0 {
				last = excerpt(p.clean.Line(c.Messages[len(c.Messages)-1].Content), 50)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Key(), p.otherName(c), TimeAgo(c.UpdatedAt.Time, p.now()), last)
		}
		tw.Flush()
	})
}

// Chat prints one conversation.
func (p *Printer) Chat(chat models.Chat) error {
	return p.emit(chat, func(w io.Writer) {
		fmt.Fprintf(w, "Chat with %s\n", p.otherName(chat))
		if len(chat.Messages) == 0 {
			fmt.Fprintln(w, "No messages yet.")
			return
		}
		for _, m := range chat.Messages {
			who := "them"
			if identity.MatchesUser(m.Sender, p.me) {
				who = "you"
			}
			at := m.Timestamp
			if at.IsZero() {
				at = m.CreatedAt
			}
			fmt.Fprintf(w, "[%s] %s: %s\n", DateTime(at.Time), who, p.clean.Clean(m.Content))
		}
	})
}

func (p *Printer) user(w io.Writer, u models.User) {
	fmt.Fprintf(w, "%s\n", p.clean.Line(u.Username))
	field := func(label, v string) {
		if v = p.clean.Clean(v); v != "" {
			fmt.Fprintf(w, "  %-9s %s\n", label+":", v)
		}
	}
	field("Title", u.Title)
	field("Email", u.Email)
	field("Bio", u.Bio)
	field("Contact", u.ContactInfo)
	if !u.CreatedAt.IsZero() {
		field("Joined", Date(u.CreatedAt.Time))
	}
}

func stats(w io.Writer, s *models.UserStats) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "  Posts %d · Comments %d · Likes received %d · Saved %d\n",
		s.Posts, s.Comments, s.LikesReceived, s.SavedPosts)
}

// Profile prints the signed-in user's profile.
func (p *Printer) Profile(u models.User, s *models.UserStats) error {
	v := struct {
		User  models.User       `json:"user"`
		Stats *models.UserStats `json:"stats,omitempty"`
	}{u, s}
	return p.emit(v, func(w io.Writer) {
		p.user(w, u)
		stats(w, s)
	})
}

// PublicProfile prints another user's profile with their recent posts.
func (p *Printer) PublicProfile(pp models.PublicProfile) error {
	return p.emit(pp, func(w io.Writer) {
		p.user(w, pp.User)
		stats(w, pp.Stats)
		fmt.Fprintln(w)
		if len(pp.Posts) == 0 {
			fmt.Fprintln(w, "No posts yet.")
			return
		}
		fmt.Fprintln(w, "Recent posts")
		for _, post := range pp.Posts {
			fmt.Fprintf(w, "  %s  %s\n", TimeAgo(post.CreatedAt.Time, p.now()), excerpt(p.clean.Line(post.Content), 70))
		}
	})
}

// Formulas prints a catalogue listing.
func (p *Printer) Formulas(list []models.Formula) error {
	return p.emit(list, func(w io.Writer) {
		if len(list) == 0 {
			fmt.Fprintln(w, "No formulas found.")
			return
		}
		tw := table(w)
		fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tLEVEL\tFORMULA")
		for _, f := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.Key(), p.clean.Line(f.Name),
				calculator.CategoryLabel(f.Category), f.Difficulty, p.clean.Line(f.Formula))
		}
		tw.Flush()
	})
}

// Formula prints a formula with its variables and what it can solve for.
func (p *Printer) Formula(f models.Formula, opts []models.CalculationOption) error {
	v := struct {
		models.Formula
		Options []models.CalculationOption `json:"calculationOptions"`
	}{f, opts}
	return p.emit(v, func(w io.Writer) {
		fmt.Fprintf(w, "%s  (%s, %s)\n", p.clean.Line(f.Name), calculator.CategoryLabel(f.Category), f.Difficulty)
		if f.Formula != "" {
			fmt.Fprintf(w, "  %s\n", p.clean.Line(f.Formula))
		}
		if d := p.clean.Clean(f.Description); d != "" {
			fmt.Fprintf(w, "  %s\n", d)
		}
		fmt.Fprintln(w)
		tw := table(w)
		fmt.Fprintln(tw, "KEY\tNAME\tUNIT\tCONSTRAINTS")
		for _, vr := range f.Variables {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", vr.Key, p.clean.Line(vr.Name), vr.Unit, constraints(vr.Constraints))
		}
		tw.Flush()
		if len(opts) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Solve for:")
			for _, o := range opts {
				fmt.Fprintf(w, "  %s  from %s\n", o.OutputVariable, strings.Join(o.RequiredInputs, ", "))
			}
		}
	})
}

func constraints(c models.Constraints) string {
	var parts []string
	if c.MustBePositive {
		parts = append(parts, "> 0")
	}
	if c.Min != nil {
		parts = append(parts, "≥ "+number(*c.Min))
	}
	if c.Max != nil {
		parts = append(parts, "≤ "+number(*c.Max))
	}
	return strings.Join(parts, ", ")
}

// Result prints a formula calculation.
func (p *Printer) Result(f *models.Formula, r models.CalculationResult) error {
	return p.emit(r, func(w io.Writer) {
		keys := make([]string, 0, len(r.Inputs))
		for k := range r.Inputs {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s = %s%s\n", k, number(r.Inputs[k]), unit(f, k))
		}
		fmt.Fprintf(w, "%s = %s%s\n", r.OutputVariable, number(r.Result), unit(f, r.OutputVariable))
	})
}

func unit(f *models.Formula, key string) string {
	if v, ok := f.Variable(key); ok && v.Unit != "" {
		return " " + v.Unit
	}
	return ""
}

// Basic prints the outcome of a basic calculator run.
func (p *Printer) Basic(display string, entries []calculator.Entry) error {
	v := struct {
		Display string             `json:"display"`
		History []calculator.Entry `json:"history"`
	}{display, entries}
	return p.emit(v, func(w io.Writer) {
		for _, e := range entries {
			fmt.Fprintln(w, e.Expression)
		}
		if len(entries) == 0 || strconv.FormatFloat(entries[len(entries)-1].Result, 'f', -1, 64) != display {
			fmt.Fprintln(w, display)
		}
	})
}

// History prints stored calculations, newest first.
func (p *Printer) History(recs []*history.Record) error {
	return p.emit(recs, func(w io.Writer) {
		if len(recs) == 0 {
			fmt.Fprintln(w, "No calculations yet.")
			return
		}
		tw := table(w)
		fmt.Fprintln(tw, "WHEN\tKIND\tCALCULATION")
		for _, r := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", TimeAgo(r.CreatedAt, p.now()), r.Kind, describe(r))
		}
		tw.Flush()
	})
}

func describe(r *history.Record) string {
	if r.Kind == history.KindBasic {
		return r.Expression
	}
	keys := make([]string, 0, len(r.Inputs))
	for k := range r.Inputs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	in := make([]string, 0, len(keys))
	for _, k := range keys {
		in = append(in, k+"="+number(r.Inputs[k]))
	}
	return fmt.Sprintf("%s: %s = %s (%s)", r.FormulaName, r.OutputVariable, number(r.Result), strings.Join(in, ", "))
}
