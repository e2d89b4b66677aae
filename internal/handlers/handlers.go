package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"blogger/internal/auth"
	"blogger/internal/render"
	"blogger/internal/store"
)

const maxImageMemory = 10 << 20

type Handler struct {
	posts    *store.PostStore
	users    *store.UserStore
	sessions *auth.Manager
	tpls     *template.Template
	infoLog  *log.Logger
	errorLog *log.Logger
}

var functions = template.FuncMap{
	"formatDate": func(t time.Time) string {
		return t.Format("02 Jan 2006, 15:04")
	},
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
}

func New(posts *store.PostStore, users *store.UserStore, sessions *auth.Manager, templateDir string, infoLog, errorLog *log.Logger) *Handler {
	tpls := template.Must(template.New("").Funcs(functions).ParseGlob(filepath.Join(templateDir, "*.html")))
	return &Handler{
		posts:    posts,
		users:    users,
		sessions: sessions,
		tpls:     tpls,
		infoLog:  infoLog,
		errorLog: errorLog,
	}
}

var editPath = regexp.MustCompile(`^/(\d+)/edit$`)

func (h *Handler) Routes(staticDir string) http.Handler {
	mux := http.NewServeMux()

	fs := http.FileServer(http.Dir(staticDir))
	mux.Handle("/static/", http.StripPrefix("/static/", fs))

	mux.HandleFunc("/home", h.Home)
	mux.HandleFunc("/register", h.Register)
	mux.HandleFunc("/login", h.Login)
	mux.HandleFunc("/logout", h.RequireAuth(h.Logout))
	mux.HandleFunc("/about", h.Contact)
	mux.HandleFunc("/contact", h.Contact)

	mux.HandleFunc("/admin", h.RequireAuth(h.Admin))
	mux.HandleFunc("/admin/edit", h.RequireAuth(h.AdminEdit))
	mux.HandleFunc("/create", h.RequireAuth(h.CreatePost))

	mux.HandleFunc("/post/", h.PostDetail)
	mux.HandleFunc("/images/", h.Image)

	mux.HandleFunc("/", h.root)
	return mux
}

// root serves the home page and dispatches the dynamic /{id}/edit
// route; everything else is a 404.
func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		h.Home(w, r)
		return
	}
	if m := editPath.FindStringSubmatch(r.URL.Path); m != nil {
		id, _ := strconv.ParseInt(m[1], 10, 64)
		h.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
			h.editPost(w, r, id)
		})(w, r)
		return
	}
	h.notFound(w, r)
}

// -------- Pages

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	pg, err := h.posts.ListPage(r.Context(), pageParam(r))
	if err != nil {
		h.serverError(w, err)
		return
	}
	h.render(w, r, http.StatusOK, "home", map[string]any{
		"Title": "Home page",
		"Page":  pg,
	})
}

func (h *Handler) PostDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, http.MethodGet)
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/post/"), 10, 64)
	if err != nil {
		setFlash(w, "Wrong post id")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	post, err := h.posts.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		setFlash(w, "Post doesn't exist")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.serverError(w, err)
		return
	}

	body, err := render.HTML(post.Body)
	if err != nil {
		h.serverError(w, err)
		return
	}

	h.render(w, r, http.StatusOK, "post", map[string]any{
		"Title": post.Title,
		"Post":  post,
		"Body":  body,
	})
}

// Image streams the stored blob byte-for-byte. The .jpg extension and
// image/jpg MIME type are fixed regardless of the uploaded format.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, http.MethodGet)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/images/")
	idStr, ok := strings.CutSuffix(name, ".jpg")
	if !ok {
		h.notFound(w, r)
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.notFound(w, r)
		return
	}

	img, err := h.posts.GetImage(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		setFlash(w, "Post doesn't exist")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.serverError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpg")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Write(img)
}

// -------- Authoring

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, "create", map[string]any{
			"Title": "Create post",
			"Form":  postForm{},
		})
		return
	case http.MethodPost:
	default:
		h.methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		h.render(w, r, http.StatusBadRequest, "create", map[string]any{
			"Title": "Create post",
			"Form":  postForm{},
			"Flash": "All fields are required",
		})
		return
	}
	f := postFormFromRequest(r)
	image, err := readImage(r)
	if err != nil {
		h.serverError(w, err)
		return
	}

	post, err := h.posts.Create(r.Context(), f.Title, f.Description, f.Body, image)
	if err != nil {
		msg := "Something went wrong"
		if errors.Is(err, store.ErrValidation) {
			msg = "All fields are required"
		} else {
			h.errorLog.Printf("create post: %v", err)
		}
		// keep the submitted values so the author doesn't retype them
		h.render(w, r, http.StatusOK, "create", map[string]any{
			"Title": "Create post",
			"Form":  f,
			"Flash": msg,
		})
		return
	}

	h.infoLog.Printf("post created: id=%d title=%q", post.ID, post.Title)
	http.Redirect(w, r, "/post/"+strconv.FormatInt(post.ID, 10), http.StatusSeeOther)
}

func (h *Handler) editPost(w http.ResponseWriter, r *http.Request, id int64) {
	post, err := h.posts.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		setFlash(w, "Post doesn't exist")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.serverError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, "edit", map[string]any{
			"Title":  "Edit post",
			"PostID": id,
			"Form": postForm{
				Title:       post.Title,
				Description: post.Description,
				Body:        post.Body,
			},
		})
	case http.MethodPost:
		f := postFormFromRequest(r)
		updated, err := h.posts.Update(r.Context(), id, f.Title, f.Description, f.Body)
		if err != nil {
			if errors.Is(err, store.ErrValidation) {
				h.render(w, r, http.StatusOK, "edit", map[string]any{
					"Title":  "Edit post",
					"PostID": id,
					"Form":   f,
					"Flash":  "All fields are required",
				})
				return
			}
			h.serverError(w, err)
			return
		}
		h.infoLog.Printf("post updated: id=%d", updated.ID)
		http.Redirect(w, r, "/post/"+strconv.FormatInt(updated.ID, 10), http.StatusSeeOther)
	default:
		h.methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// -------- Auth pages

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.CurrentUserID(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, "register", map[string]any{"Title": "Register"})
		return
	case http.MethodPost:
	default:
		h.methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	pass := r.FormValue("password")
	pass2 := r.FormValue("password2")

	fail := func(msg string) {
		h.render(w, r, http.StatusOK, "register", map[string]any{
			"Title":    "Register",
			"Username": username,
			"Flash":    msg,
		})
	}

	if username == "" || pass == "" {
		fail("All fields are required")
		return
	}
	if pass != pass2 {
		fail("Passwords do not match")
		return
	}

	hash, err := auth.HashPassword(pass)
	if err != nil {
		h.serverError(w, err)
		return
	}
	if _, err := h.users.Create(r.Context(), username, hash); err != nil {
		if errors.Is(err, store.ErrConflict) {
			fail("Try a different username")
			return
		}
		h.serverError(w, err)
		return
	}

	setFlash(w, "Congratulations, you are now a registered user!")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.CurrentUserID(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, "login", map[string]any{
			"Title": "Sign In",
			"Next":  r.URL.Query().Get("next"),
		})
		return
	case http.MethodPost:
	default:
		h.methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	pass := r.FormValue("password")

	user, err := h.users.ByUsername(r.Context(), username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.serverError(w, err)
		return
	}
	if err != nil || !auth.CheckPassword(pass, user.PasswordHash) {
		setFlash(w, "Invalid username or password")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := h.sessions.Create(w, user.ID); err != nil {
		h.serverError(w, err)
		return
	}
	http.Redirect(w, r, safeNext(r.FormValue("next")), http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// -------- Admin

func (h *Handler) Admin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "admin", map[string]any{"Title": "Admin"})
}

func (h *Handler) AdminEdit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, http.MethodGet)
		return
	}
	pg, err := h.posts.ListPage(r.Context(), pageParam(r))
	if err != nil {
		h.serverError(w, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_edit", map[string]any{
		"Title": "Edit posts",
		"Page":  pg,
	})
}

// -------- Contact / about

func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	page := "contact"
	title := "Contact"
	if strings.HasPrefix(r.URL.Path, "/about") {
		page = "about"
		title = "About"
	}
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, page, map[string]any{
			"Title":  title,
			"Action": r.URL.Path,
			"Form":   contactForm{},
		})
	case http.MethodPost:
		f := contactFormFromRequest(r)
		if msg := f.validate(); msg != "" {
			h.render(w, r, http.StatusOK, page, map[string]any{
				"Title":  title,
				"Action": r.URL.Path,
				"Form":   f,
				"Flash":  msg,
			})
			return
		}
		// delegated: the message is logged, nothing is persisted
		h.infoLog.Printf("contact message from %s <%s>: %s", f.Name, f.Email, f.Subject)
		setFlash(w, "Message sent")
		http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
	default:
		h.methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// -------- Helpers

func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// safeNext allows only same-site relative paths as a post-login target.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	return next
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Logged"]; !ok {
		_, logged := h.sessions.CurrentUserID(r)
		data["Logged"] = logged
	}
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = popFlash(w, r)
	}

	var buf bytes.Buffer
	if err := h.tpls.ExecuteTemplate(&buf, name, data); err != nil {
		h.serverError(w, err)
		return
	}
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	h.errorLog.Printf("%v", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "notfound", map[string]any{"Title": "Not Found"})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, methods ...string) {
	w.Header().Set("Allow", strings.Join(methods, ", "))
	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
}
