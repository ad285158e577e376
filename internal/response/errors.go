package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrLearnerAccessOnly ErrCode = "LEARNER_ACCESS_ONLY"
	ErrAuthorAccessOnly  ErrCode = "AUTHOR_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidRequest ErrCode = "INVALID_REQUEST"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrAttemptNotDraft           ErrCode = "ATTEMPT_NOT_DRAFT"
	ErrAttemptAlreadySubmitted   ErrCode = "ATTEMPT_ALREADY_SUBMITTED"
	ErrAttemptNotFinished        ErrCode = "ATTEMPT_NOT_FINISHED"
	ErrQuestionNotFound          ErrCode = "QUESTION_NOT_FOUND"
	ErrChoiceNotFound            ErrCode = "CHOICE_NOT_FOUND"
	ErrListeningTaskNotActivated ErrCode = "LISTENING_TASK_NOT_ACTIVATED"
	ErrPassageNotActivated       ErrCode = "PASSAGE_NOT_ACTIVATED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token tidak valid atau sudah kedaluwarsa."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Anda tidak memiliki akses ke sumber daya ini."
	case ErrLearnerAccessOnly:
		return "Endpoint ini hanya untuk peserta latihan."
	case ErrAuthorAccessOnly:
		return "Endpoint ini hanya untuk penyusun soal."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Data yang dikirim tidak valid."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidRequest:
		return "Permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Data tidak ditemukan."

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	case ErrAttemptNotDraft:
		return "Percobaan ini sudah tidak dapat diubah."
	case ErrAttemptAlreadySubmitted:
		return "Percobaan ini sudah dikumpulkan."
	case ErrAttemptNotFinished:
		return "Hasil belum tersedia karena percobaan belum dikumpulkan."
	case ErrQuestionNotFound:
		return "Soal tidak ditemukan pada percobaan ini."
	case ErrChoiceNotFound:
		return "Pilihan jawaban tidak ditemukan."
	case ErrListeningTaskNotActivated:
		return "Tugas listening belum diaktifkan."
	case ErrPassageNotActivated:
		return "Bacaan belum diaktifkan."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan pada server."

	default:
		return "Terjadi kesalahan yang tidak diketahui."
	}
}
