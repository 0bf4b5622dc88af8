package main

import (
	"context"
	"flag"
	"fmt"
	"slices"
	"strings"

	"toolbox/internal/actions"
	"toolbox/internal/calculator"
	"toolbox/internal/engagement"
	"toolbox/internal/history"
	"toolbox/internal/models"
	"toolbox/internal/render"
	"toolbox/internal/validation"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"signup", "-username u -email e -password p [-confirm p]", cmdSignUp},
	{"signin", "-username u -password p", cmdSignIn},
	{"signout", "forget the stored session", cmdSignOut},
	{"whoami", "show the signed-in user", cmdWhoAmI},
	{"posts", "[-mine|-liked|-saved] list posts", cmdPosts},
	{"post", "<postId> show one post", cmdPost},
	{"new-post", "[-tags \"#a, #b\"] <content...>", cmdNewPost},
	{"edit-post", "[-tags \"#a, #b\"] <postId> <content...>", cmdEditPost},
	{"delete-post", "<postId>", cmdDeletePost},
	{"like", "<postId> toggle your like", cmdLike},
	{"save", "<postId> toggle saved", cmdSave},
	{"comments", "<postId> show the discussion", cmdComments},
	{"comment", "<postId> <content...>", cmdComment},
	{"reply", "<postId> <commentId> <content...>", cmdReply},
	{"edit-comment", "<postId> <commentId> <content...>", cmdEditComment},
	{"delete-comment", "<postId> <commentId>", cmdDeleteComment},
	{"chats", "list your conversations", cmdChats},
	{"chat", "<chatId> show a conversation", cmdChat},
	{"start-chat", "<userId> open a conversation", cmdStartChat},
	{"send", "<chatId> <message...>", cmdSend},
	{"profile", "show your profile and stats", cmdProfile},
	{"profile-edit", "[-username u] [-bio b] [-title t] [-contact c] [-avatar url]", cmdProfileEdit},
	{"user", "<userId> show a public profile", cmdUser},
	{"formulas", "[-category c] [-difficulty d] [-search q] [-page n] [-limit n] [-categories]", cmdFormulas},
	{"formula", "<formulaId> show a formula", cmdFormula},
	{"calc", "<formulaId> <output> name=value...", cmdCalc},
	{"basic", "<keys...> e.g. 12 + 3 × 2 =", cmdBasic},
	{"history", "[-kind formula|basic] [-limit n] [-clear]", cmdHistory},
}

func lookup(name string) (command, bool) {
	i := slices.IndexFunc(commands, func(c command) bool { return c.name == name })
	if i < 0 {
		return command{}, false
	}
	return commands[i], true
}

// parse parses args and checks that at least n positional arguments remain.
func parse(fs *flag.FlagSet, args []string, n int, usage string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, usageError{msg: err.Error()}
	}
	if fs.NArg() < n {
		return nil, usagef("usage: toolbox %s %s", fs.Name(), usage)
	}
	return fs.Args(), nil
}

func text(words []string) string {
	return strings.Join(words, " ")
}

// reportFields lists per-field validation failures on stderr.
func (a *app) reportFields(fields validation.FieldErrors) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(a.io.errOut, "  %s: %s\n", k, fields[k])
	}
}

func cmdSignUp(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("signup")
	var r models.Registration
	fs.StringVar(&r.Username, "username", "", "username")
	fs.StringVar(&r.Email, "email", "", "email address")
	fs.StringVar(&r.Password, "password", "", "password")
	fs.StringVar(&r.PasswordConf, "confirm", "", "password confirmation (defaults to -password)")
	if _, err := parse(fs, args, 0, "-username u -email e -password p"); err != nil {
		return err
	}
	if r.PasswordConf == "" {
		r.PasswordConf = r.Password
	}
	form := actions.NewAuthForm(a.client, a.sess)
	u, err := form.SignUp(ctx, r)
	if err != nil {
		a.reportFields(form.FieldErrors())
		return viewError(form, err)
	}
	return a.printer().Message("Welcome, " + u.Username + "!")
}

func cmdSignIn(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("signin")
	var c models.Credentials
	fs.StringVar(&c.Username, "username", "", "username")
	fs.StringVar(&c.Password, "password", "", "password")
	if _, err := parse(fs, args, 0, "-username u -password p"); err != nil {
		return err
	}
	form := actions.NewAuthForm(a.client, a.sess)
	u, err := form.SignIn(ctx, c)
	if err != nil {
		a.reportFields(form.FieldErrors())
		return viewError(form, err)
	}
	return a.printer().Message("Signed in as " + u.Username)
}

func cmdSignOut(ctx context.Context, a *app, _ []string) error {
	form := actions.NewAuthForm(a.client, a.sess)
	if err := form.SignOut(ctx); err != nil {
		return viewError(form, err)
	}
	return a.printer().Message("Signed out")
}

func cmdWhoAmI(ctx context.Context, a *app, _ []string) error {
	if !a.sess.SignedIn() {
		return displayError{msg: actions.SignInToView, err: models.NewUnauthorizedError(actions.SignInToView)}
	}
	u, err := a.client.CurrentUser(ctx)
	if err != nil {
		return displayError{msg: actions.ErrorMessage(err, actions.UnexpectedError), err: err}
	}
	return a.printer().Profile(*u, nil)
}

func cmdPosts(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("posts")
	mine := fs.Bool("mine", false, "only your posts")
	liked := fs.Bool("liked", false, "posts you liked")
	saved := fs.Bool("saved", false, "posts you saved")
	if _, err := parse(fs, args, 0, "[-mine|-liked|-saved]"); err != nil {
		return err
	}
	feed := actions.FeedAll
	picked := 0
	for _, f := range []struct {
		on   bool
		feed actions.Feed
	}{{*mine, actions.FeedMine}, {*liked, actions.FeedLiked}, {*saved, actions.FeedSaved}} {
		if f.on {
			feed = f.feed
			picked++
		}
	}
	if picked > 1 {
		return usagef("choose at most one of -mine, -liked and -saved")
	}

	v := actions.NewFeedView(a.client, a.sess, a.confirmer())
	defer v.Close()
	if err := v.Load(ctx, feed); err != nil {
		return viewError(v, err)
	}
	posts := v.Posts()
	set := engagement.NewSavedSet()
	for _, p := range posts {
		if v.IsSaved(p.Key()) {
			set[p.Key()] = struct{}{}
		}
	}
	return a.printer().Posts(feed.Title(), posts, set)
}

// loadPost opens a PostView on id.
func (a *app) loadPost(ctx context.Context, id string) (*actions.PostView, error) {
	v := actions.NewPostView(a.client, a.sess, a.confirmer())
	if err := v.Load(ctx, models.ID(id)); err != nil {
		return nil, viewError(v, err)
	}
	return v, nil
}

func (a *app) printPost(v *actions.PostView) error {
	return a.printer().Post(*v.Post(), render.PostState{Liked: v.IsLiked(), Saved: v.IsSaved()})
}

func cmdPost(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("post"), args, 1, "<postId>")
	if err != nil {
		return err
	}
	v, err := a.loadPost(ctx, rest[0])
	if err != nil {
		return err
	}
	defer v.Close()
	return a.printPost(v)
}

func cmdNewPost(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("new-post")
	tags := fs.String("tags", "", "tags such as \"#beams, #steel\"")
	rest, err := parse(fs, args, 0, "[-tags t] <content...>")
	if err != nil {
		return err
	}
	form := actions.NewPostForm(a.client, a.sess)
	post, err := form.Submit(ctx, "", text(rest), *tags)
	if err != nil {
		return viewError(form, err)
	}
	return a.printer().Post(*post, render.PostState{})
}

func cmdEditPost(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("edit-post")
	tags := fs.String("tags", "", "replacement tags")
	rest, err := parse(fs, args, 1, "[-tags t] <postId> <content...>")
	if err != nil {
		return err
	}
	form := actions.NewPostForm(a.client, a.sess)
	post, err := form.Submit(ctx, models.ID(rest[0]), text(rest[1:]), *tags)
	if err != nil {
		return viewError(form, err)
	}
	return a.printer().Post(*post, render.PostState{})
}

func cmdDeletePost(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("delete-post"), args, 1, "<postId>")
	if err != nil {
		return err
	}
	v, err := a.loadPost(ctx, rest[0])
	if err != nil {
		return err
	}
	defer v.Close()
	deleted, err := v.Delete(ctx)
	if err != nil {
		return viewError(v, err)
	}
	if !deleted {
		return a.printer().Message("Cancelled")
	}
	return a.printer().Message("Post deleted")
}

func cmdLike(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("like"), args, 1, "<postId>")
	if err != nil {
		return err
	}
	v, err := a.loadPost(ctx, rest[0])
	if err != nil {
		return err
	}
	defer v.Close()
	if err := v.Like(ctx); err != nil {
		return viewError(v, err)
	}
	return a.printPost(v)
}

func cmdSave(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("save"), args, 1, "<postId>")
	if err != nil {
		return err
	}
	v, err := a.loadPost(ctx, rest[0])
	if err != nil {
		return err
	}
	defer v.Close()
	if err := v.Save(ctx); err != nil {
		return viewError(v, err)
	}
	if v.IsSaved() {
		return a.printer().Message("Post saved")
	}
	return a.printer().Message("Post removed from saved")
}

// loadComments opens the discussion of postID.
func (a *app) loadComments(ctx context.Context, postID string) (*actions.CommentsView, error) {
	v := actions.NewCommentsView(a.client, a.sess, a.confirmer(), models.ID(postID), actions.WithCommentFlags(a.flags))
	if err := v.Load(ctx); err != nil {
		return nil, viewError(v, err)
	}
	return v, nil
}

func cmdComments(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("comments"), args, 1, "<postId>")
	if err != nil {
		return err
	}
	v, err := a.loadComments(ctx, rest[0])
	if err != nil {
		return err
	}
	defer v.Close()
	return a.printer().Threads(v.Threads())
}

func cmdComment(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("comment"), args, 1, "<postId> <content...>")
	if err != nil {
		return err
	}
	v := actions.NewCommentsView(a.client, a.sess, a.confirmer(), models.ID(rest[0]), actions.WithCommentFlags(a.flags))
	defer v.Close()
	if err := v.Create(ctx, text(rest[1:])); err != nil {
		return viewError(v, err)
	}
	return a.printer().Threads(v.Threads())
}

func cmdReply(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("reply"), args, 2, "<postId> <commentId> <content...>")
	if err != nil {
		return err
	}
	v := actions.NewCommentsView(a.client, a.sess, a.confirmer(), models.ID(rest[0]), actions.WithCommentFlags(a.flags))
	defer v.Close()
	if err := v.Reply(ctx, models.ID(rest[1]), text(rest[2:])); err != nil {
		return viewError(v, err)
	}
	return a.printer().Threads(v.Threads())
}

func cmdEditComment(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("edit-comment"), args, 2, "<postId> <commentId> <content...>")
	if err != nil {
		return err
	}
	v, err := a.loadComments(ctx, rest[0])
	if err != nil {
		return err
	}
	defer v.Close()
	if err := v.Edit(ctx, models.ID(rest[1]), text(rest[2:])); err != nil {
		return viewError(v, err)
	}
	return a.printer().Threads(v.Threads())
}

func cmdDeleteComment(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("delete-comment"), args, 2, "<postId> <commentId>")
	if err != nil {
		return err
	}
	v, err := a.loadComments(ctx, rest[0])
	if err != nil {
		return err
	}
	defer v.Close()
	deleted, err := v.Delete(ctx, models.ID(rest[1]))
	if err != nil {
		return viewError(v, err)
	}
	if !deleted {
		return a.printer().Message("Cancelled")
	}
	return a.printer().Message("Comment deleted")
}

func cmdChats(ctx context.Context, a *app, _ []string) error {
	v := actions.NewChatsView(a.client, a.sess)
	defer v.Close()
	if err := v.Load(ctx); err != nil {
		return viewError(v, err)
	}
	return a.printer().Chats(v.Chats())
}

func cmdChat(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("chat"), args, 1, "<chatId>")
	if err != nil {
		return err
	}
	v := actions.NewChatView(a.client, a.sess)
	defer v.Close()
	if err := v.Load(ctx, models.ID(rest[0])); err != nil {
		return viewError(v, err)
	}
	return a.printer().Chat(*v.Chat())
}

func cmdStartChat(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("start-chat"), args, 1, "<userId>")
	if err != nil {
		return err
	}
	v := actions.NewChatsView(a.client, a.sess)
	defer v.Close()
	chat, err := v.Start(ctx, models.ID(rest[0]))
	if err != nil {
		return viewError(v, err)
	}
	return a.printer().Chat(*chat)
}

func cmdSend(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("send"), args, 1, "<chatId> <message...>")
	if err != nil {
		return err
	}
	v := actions.NewChatView(a.client, a.sess)
	defer v.Close()
	if err := v.Load(ctx, models.ID(rest[0])); err != nil {
		return viewError(v, err)
	}
	if err := v.Send(ctx, text(rest[1:])); err != nil {
		return viewError(v, err)
	}
	return a.printer().Chat(*v.Chat())
}

func cmdProfile(ctx context.Context, a *app, _ []string) error {
	v := actions.NewProfileView(a.client, a.sess)
	defer v.Close()
	if err := v.Load(ctx); err != nil {
		return viewError(v, err)
	}
	return a.printer().Profile(*v.Profile(), v.Stats())
}

func cmdProfileEdit(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("profile-edit")
	username := fs.String("username", "", "new username")
	bio := fs.String("bio", "", "bio")
	title := fs.String("title", "", "job title")
	contact := fs.String("contact", "", "contact info")
	avatar := fs.String("avatar", "", "avatar URL")
	if _, err := parse(fs, args, 0, "[-username u] [-bio b] [-title t] [-contact c] [-avatar url]"); err != nil {
		return err
	}

	v := actions.NewProfileView(a.client, a.sess)
	defer v.Close()
	if err := v.Load(ctx); err != nil {
		return viewError(v, err)
	}
	cur := v.Profile()
	in := models.ProfileUpdate{
		Username:    cur.Username,
		Bio:         cur.Bio,
		ContactInfo: cur.ContactInfo,
		Title:       cur.Title,
		Avatar:      cur.Avatar,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "username":
			in.Username = *username
		case "bio":
			in.Bio = *bio
		case "title":
			in.Title = *title
		case "contact":
			in.ContactInfo = *contact
		case "avatar":
			in.Avatar = *avatar
		}
	})
	if err := v.Update(ctx, in); err != nil {
		a.reportFields(v.FieldErrors())
		return viewError(v, err)
	}
	return a.printer().Profile(*v.Profile(), v.Stats())
}

func cmdUser(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("user"), args, 1, "<userId>")
	if err != nil {
		return err
	}
	v := actions.NewProfileView(a.client, a.sess)
	defer v.Close()
	if err := v.LoadPublic(ctx, models.ID(rest[0])); err != nil {
		return viewError(v, err)
	}
	return a.printer().PublicProfile(*v.Public())
}

// formulaView returns a formula view that records calculations when the
// history database can be opened.
func (a *app) formulaView() *actions.FormulaView {
	var opts []actions.FormulaOption
	if repo, err := a.history(); err == nil {
		opts = append(opts, actions.WithHistory(repo))
	} else {
		fmt.Fprintf(a.io.errOut, "history unavailable: %v\n", err)
	}
	return actions.NewFormulaView(a.client, a.sess, opts...)
}

func cmdFormulas(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("formulas")
	var f models.FormulaFilter
	fs.StringVar(&f.Category, "category", calculator.AllCategories, "category filter")
	fs.StringVar(&f.Difficulty, "difficulty", "", "Beginner, Intermediate or Advanced")
	fs.StringVar(&f.Search, "search", "", "text search")
	fs.IntVar(&f.Page, "page", 0, "page number")
	fs.IntVar(&f.Limit, "limit", 0, "page size")
	categories := fs.Bool("categories", false, "list the categories instead")
	if _, err := parse(fs, args, 0, "[flags]"); err != nil {
		return err
	}
	if *categories {
		return a.printCategories()
	}

	v := actions.NewFormulaView(a.client, a.sess)
	defer v.Close()
	if err := v.LoadList(ctx, f); err != nil {
		return viewError(v, err)
	}
	return a.printer().Formulas(v.List())
}

func (a *app) printCategories() error {
	p := a.printer()
	if p.Format() != render.Text {
		return p.Value(calculator.Categories)
	}
	for _, c := range calculator.Categories {
		fmt.Fprintf(a.io.out, "%-18s %s\n", c.Value, c.Label)
	}
	return nil
}

func cmdFormula(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("formula"), args, 1, "<formulaId>")
	if err != nil {
		return err
	}
	v := actions.NewFormulaView(a.client, a.sess)
	defer v.Close()
	if err := v.Select(ctx, models.ID(rest[0])); err != nil {
		return viewError(v, err)
	}
	return a.printer().Formula(*v.Formula(), v.Options())
}

func cmdCalc(ctx context.Context, a *app, args []string) error {
	rest, err := parse(a.flagSet("calc"), args, 2, "<formulaId> <output> name=value...")
	if err != nil {
		return err
	}
	v := a.formulaView()
	defer v.Close()
	if err := v.Select(ctx, models.ID(rest[0])); err != nil {
		return viewError(v, err)
	}
	if err := v.ChooseOutput(rest[1]); err != nil {
		return usageError{msg: err.Error()}
	}
	for _, kv := range rest[2:] {
		k, val, ok := strings.Cut(kv, "=")
		if !ok {
			return usagef("input %q is not name=value", kv)
		}
		v.SetInput(strings.TrimSpace(k), strings.TrimSpace(val))
	}
	if _, err := v.Calculate(ctx); err != nil {
		return viewError(v, err)
	}
	return a.printer().Result(v.Formula(), *v.Result())
}

func cmdBasic(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return usagef("usage: toolbox basic <keys...>")
	}
	b := calculator.NewBasic()
	if err := b.Run(args); err != nil {
		return usageError{msg: err.Error()}
	}
	entries := b.History()
	if len(entries) > 0 {
		repo, err := a.history()
		if err != nil {
			fmt.Fprintf(a.io.errOut, "history unavailable: %v\n", err)
		} else {
			for _, e := range entries {
				if err := repo.Create(ctx, history.FromBasic(e, a.now())); err != nil {
					return fmt.Errorf("record calculation: %w", err)
				}
			}
		}
	}
	return a.printer().Basic(b.Display(), entries)
}

func cmdHistory(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("history")
	kind := fs.String("kind", "", "formula or basic")
	limit := fs.Int("limit", 20, "maximum records, 0 for all")
	wipe := fs.Bool("clear", false, "delete all history")
	if _, err := parse(fs, args, 0, "[-kind k] [-limit n] [-clear]"); err != nil {
		return err
	}
	switch *kind {
	case "", history.KindFormula, history.KindBasic:
	default:
		return usagef("unknown history kind %q", *kind)
	}
	repo, err := a.history()
	if err != nil {
		return err
	}
	if *wipe {
		if err := repo.Clear(ctx); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		return a.printer().Message("History cleared")
	}
	recs, err := repo.List(ctx, *kind, *limit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	return a.printer().History(recs)
}
