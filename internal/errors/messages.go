package errors

import "strings"

// MessageKey 面向用户的提示文案
type MessageKey string

const (
	MsgNoFile            MessageKey = "no_file"
	MsgUnsupportedFormat MessageKey = "unsupported_format"
	MsgEmptyCSV          MessageKey = "empty_csv"
	MsgEmptyTXT          MessageKey = "empty_txt"
	MsgUploadFailed      MessageKey = "upload_failed"
	MsgManualRequired    MessageKey = "manual_required"
	MsgAddFailed         MessageKey = "add_failed"
	MsgMissingID         MessageKey = "missing_id"
	MsgDeleteFailed      MessageKey = "delete_failed"
	MsgListFailed        MessageKey = "list_failed"
	MsgStatsFailed       MessageKey = "stats_failed"
	MsgEmptyQuestion     MessageKey = "empty_question"
	MsgQuestionTooLong   MessageKey = "question_too_long"
	MsgEmptySearch       MessageKey = "empty_search"
	MsgNoMatch           MessageKey = "no_match"
	MsgAnswerFailed      MessageKey = "answer_failed"
	MsgSearchFailed      MessageKey = "search_failed"
	MsgEmptyGeneration   MessageKey = "empty_generation"
	MsgUnauthorized      MessageKey = "unauthorized"
	MsgInternal          MessageKey = "internal"
)

// DefaultLocale 默认语言
const DefaultLocale = "ko"

var catalog = map[string]map[MessageKey]string{
	"ko": {
		MsgNoFile:            "파일이 선택되지 않았습니다.",
		MsgUnsupportedFormat: "CSV 또는 TXT 파일만 업로드 가능합니다.",
		MsgEmptyCSV:          "CSV 파일에서 데이터를 추출할 수 없습니다.",
		MsgEmptyTXT:          "텍스트 파일에서 데이터를 추출할 수 없습니다.",
		MsgUploadFailed:      "파일 업로드 중 오류가 발생했습니다.",
		MsgManualRequired:    "질문과 답변을 모두 입력해주세요.",
		MsgAddFailed:         "항목 추가 중 오류가 발생했습니다.",
		MsgMissingID:         "ID가 제공되지 않았습니다.",
		MsgDeleteFailed:      "삭제 중 오류가 발생했습니다.",
		MsgListFailed:        "목록을 불러오는 중 오류가 발생했습니다.",
		MsgStatsFailed:       "통계를 불러오는 중 오류가 발생했습니다.",
		MsgEmptyQuestion:     "질문을 입력해주세요.",
		MsgQuestionTooLong:   "질문이 너무 깁니다. 500자 이내로 입력해주세요.",
		MsgEmptySearch:       "검색어를 입력해주세요.",
		MsgNoMatch:           "죄송합니다. 해당 질문에 대한 정보를 찾을 수 없습니다. 다른 질문을 시도하거나 고객센터로 직접 문의해주세요.",
		MsgAnswerFailed:      "답변 생성 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요.",
		MsgSearchFailed:      "검색 중 오류가 발생했습니다.",
		MsgEmptyGeneration:   "답변을 생성할 수 없습니다.",
		MsgUnauthorized:      "관리자 인증이 필요합니다.",
		MsgInternal:          "일시적인 오류가 발생했습니다.",
	},
	"en": {
		MsgNoFile:            "No file was selected.",
		MsgUnsupportedFormat: "Only CSV or TXT files can be uploaded.",
		MsgEmptyCSV:          "No data could be extracted from the CSV file.",
		MsgEmptyTXT:          "No data could be extracted from the text file.",
		MsgUploadFailed:      "An error occurred while uploading the file.",
		MsgManualRequired:    "Please enter both a question and an answer.",
		MsgAddFailed:         "An error occurred while adding the entry.",
		MsgMissingID:         "No ID was provided.",
		MsgDeleteFailed:      "An error occurred while deleting.",
		MsgListFailed:        "An error occurred while loading the list.",
		MsgStatsFailed:       "An error occurred while loading statistics.",
		MsgEmptyQuestion:     "Please enter a question.",
		MsgQuestionTooLong:   "The question is too long. Please keep it within 500 characters.",
		MsgEmptySearch:       "Please enter a search term.",
		MsgNoMatch:           "Sorry, we could not find information about that question. Please try another question or contact customer support directly.",
		MsgAnswerFailed:      "An error occurred while generating the answer. Please try again shortly.",
		MsgSearchFailed:      "An error occurred while searching.",
		MsgEmptyGeneration:   "An answer could not be generated.",
		MsgUnauthorized:      "Administrator authentication is required.",
		MsgInternal:          "A temporary error occurred.",
	},
}

// Localize 返回指定语言的提示文案，未知语言回退到韩语
func Localize(locale string, key MessageKey) string {
	msgs, ok := catalog[normalizeLocale(locale)]
	if !ok {
		msgs = catalog[DefaultLocale]
	}
	if msg, ok := msgs[key]; ok {
		return msg
	}
	return catalog[DefaultLocale][key]
}

// SupportedLocale 是否存在该语言的文案
func SupportedLocale(locale string) bool {
	_, ok := catalog[normalizeLocale(locale)]
	return ok
}

func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	return locale
}
