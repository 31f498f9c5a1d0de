// Package i18n holds the built-in fallback-page copy and the merge
// rule for user-supplied overrides, grounded on the same
// closed-enumeration style the teacher uses for its validated enums
// (domain/valueobject) — a fixed Go map keyed by language tag rather
// than a runtime-loaded catalog.
package i18n

// Strings is the set of fallback-page text fields that can vary by
// language.
type Strings struct {
	Heading  string `yaml:"heading"`
	Message  string `yaml:"message"`
	Reload   string `yaml:"reload"`
	TryAgain string `yaml:"try_again"`
	Loading  string `yaml:"loading"`
	Retrying string `yaml:"retrying"`
	RTL      bool   `yaml:"rtl"`
}

// Table maps a BCP-47-ish language tag to its Strings.
type Table map[string]Strings

// Builtin is the set of languages shipped out of the box. Every field
// is populated for every entry; Merge only needs to overlay
// non-empty user overrides on top of this.
var Builtin = Table{
	"en": {
		Heading:  "Something went wrong",
		Message:  "We ran into a problem loading this page.",
		Reload:   "Reload",
		TryAgain: "Try again",
		Loading:  "Loading…",
		Retrying: "Retrying…",
	},
	"es": {
		Heading:  "Algo salió mal",
		Message:  "Tuvimos un problema al cargar esta página.",
		Reload:   "Recargar",
		TryAgain: "Intentar de nuevo",
		Loading:  "Cargando…",
		Retrying: "Reintentando…",
	},
	"fr": {
		Heading:  "Une erreur est survenue",
		Message:  "Nous avons rencontré un problème lors du chargement de cette page.",
		Reload:   "Recharger",
		TryAgain: "Réessayer",
		Loading:  "Chargement…",
		Retrying: "Nouvelle tentative…",
	},
	"de": {
		Heading:  "Etwas ist schiefgelaufen",
		Message:  "Beim Laden dieser Seite ist ein Problem aufgetreten.",
		Reload:   "Neu laden",
		TryAgain: "Erneut versuchen",
		Loading:  "Lädt…",
		Retrying: "Erneuter Versuch…",
	},
	"ja": {
		Heading:  "問題が発生しました",
		Message:  "このページの読み込み中に問題が発生しました。",
		Reload:   "再読み込み",
		TryAgain: "再試行",
		Loading:  "読み込み中…",
		Retrying: "再試行中…",
	},
	"ar": {
		Heading:  "حدث خطأ ما",
		Message:  "واجهنا مشكلة في تحميل هذه الصفحة.",
		Reload:   "إعادة التحميل",
		TryAgain: "حاول مرة أخرى",
		Loading:  "جارٍ التحميل…",
		Retrying: "جارٍ إعادة المحاولة…",
		RTL:      true,
	},
	"he": {
		Heading:  "משהו השתבש",
		Message:  "נתקלנו בבעיה בטעינת הדף הזה.",
		Reload:   "טען מחדש",
		TryAgain: "נסה שוב",
		Loading:  "טוען…",
		Retrying: "מנסה שוב…",
		RTL:      true,
	},
	"ko": {
		Heading:  "문제가 발생했습니다",
		Message:  "이 페이지를 불러오는 중 문제가 발생했습니다.",
		Reload:   "새로고침",
		TryAgain: "다시 시도",
		Loading:  "불러오는 중…",
		Retrying: "다시 시도하는 중…",
	},
	"zh": {
		Heading:  "出现问题",
		Message:  "加载此页面时遇到问题。",
		Reload:   "重新加载",
		TryAgain: "重试",
		Loading:  "加载中…",
		Retrying: "重试中…",
	},
	"ru": {
		Heading:  "Что-то пошло не так",
		Message:  "Возникла проблема при загрузке этой страницы.",
		Reload:   "Перезагрузить",
		TryAgain: "Повторить",
		Loading:  "Загрузка…",
		Retrying: "Повтор попытки…",
	},
	"fa": {
		Heading:  "مشکلی پیش آمد",
		Message:  "در بارگذاری این صفحه مشکلی پیش آمد.",
		Reload:   "بارگذاری مجدد",
		TryAgain: "تلاش مجدد",
		Loading:  "در حال بارگذاری…",
		Retrying: "در حال تلاش مجدد…",
		RTL:      true,
	},
}

// Languages lists Builtin's keys in the fixed resolution-priority
// order the language matcher falls back to when nothing else matches.
// Matches the closed enumeration of the built-in language set.
var Languages = []string{"en", "ko", "ja", "zh", "ar", "he", "de", "ru", "es", "fa", "fr"}

// Merge overlays override's non-empty fields onto base and returns the
// result. Empty string fields and a false RTL in override never erase
// a non-empty base value — RTL is the one field where "unset" and
// "false" are indistinguishable, so an override can turn RTL on but
// never off.
func Merge(base Strings, override Strings) Strings {
	out := base
	if override.Heading != "" {
		out.Heading = override.Heading
	}
	if override.Message != "" {
		out.Message = override.Message
	}
	if override.Reload != "" {
		out.Reload = override.Reload
	}
	if override.TryAgain != "" {
		out.TryAgain = override.TryAgain
	}
	if override.Loading != "" {
		out.Loading = override.Loading
	}
	if override.Retrying != "" {
		out.Retrying = override.Retrying
	}
	if override.RTL {
		out.RTL = true
	}
	return out
}

// Resolve returns the merged Strings for lang: fields the caller's
// table leaves empty come from lang's built-in entry, or from the
// English entry when lang has no built-in entry.
func Resolve(custom Table, lang string) Strings {
	base, ok := Builtin[lang]
	if !ok {
		base = Builtin["en"]
	}
	if custom == nil {
		return base
	}
	if override, ok := custom[lang]; ok {
		return Merge(base, override)
	}
	return base
}
