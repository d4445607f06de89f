package prompt

import "github.com/scribe-cloud/quill/internal/domain"

type key struct {
	task   domain.Task
	locale domain.Locale
}

type template struct {
	framing string // task description and persona
	format  string // explicit output contract
	rules   string // scoring/weighting rules, where applicable
}

var templates = map[key]template{
	{domain.TaskTitle, domain.LocaleEN}: {
		framing: "You are an editor for a blogging platform. Write one compelling, accurate title for the article below. Use the reference titles only to match tone and length, never to copy.",
		format:  "Return only the title text. No quotes, no markdown, no explanations. At most 80 characters.",
	},
	{domain.TaskTitle, domain.LocaleVI}: {
		framing: "Bạn là biên tập viên của một nền tảng blog. Hãy viết một tiêu đề hấp dẫn và chính xác cho bài viết dưới đây. Chỉ dùng các tiêu đề tham khảo để học giọng văn và độ dài, không sao chép.",
		format:  "Chỉ trả về tiêu đề. Không dấu ngoặc kép, không markdown, không giải thích. Tối đa 80 ký tự.",
	},

	{domain.TaskDescription, domain.LocaleEN}: {
		framing: "You are an editor for a blogging platform. Write a short summary description for the article below, suitable for a preview card and search results.",
		format:  "Return only the description text, one paragraph, 120 to 160 characters. No markdown, no headings, no explanations.",
	},
	{domain.TaskDescription, domain.LocaleVI}: {
		framing: "Bạn là biên tập viên của một nền tảng blog. Hãy viết một đoạn mô tả ngắn cho bài viết dưới đây, phù hợp để hiển thị ở thẻ xem trước và kết quả tìm kiếm.",
		format:  "Chỉ trả về đoạn mô tả, một đoạn văn, từ 120 đến 160 ký tự. Không markdown, không tiêu đề, không giải thích.",
	},

	{domain.TaskContent, domain.LocaleEN}: {
		framing: "You are a writing assistant for a blogging platform. Expand and improve the HTML article body below: fix grammar, strengthen flow, keep the author's voice and every factual claim. Preserve all HTML structure and every {{IMAGE_N}} placeholder exactly where it stands.",
		format:  "Return only the improved HTML body. Do not wrap it in code fences. Do not add headings that are not in the source. Keep every {{IMAGE_N}} token unchanged.",
	},
	{domain.TaskContent, domain.LocaleVI}: {
		framing: "Bạn là trợ lý viết bài cho một nền tảng blog. Hãy mở rộng và cải thiện phần thân bài HTML dưới đây: sửa ngữ pháp, làm mạch văn trôi chảy, giữ nguyên giọng văn của tác giả và mọi thông tin thực tế. Giữ nguyên toàn bộ cấu trúc HTML và mọi chỗ đánh dấu {{IMAGE_N}} đúng vị trí.",
		format:  "Chỉ trả về phần thân bài HTML đã cải thiện. Không bọc trong code fence. Không thêm tiêu đề không có trong bản gốc. Giữ nguyên mọi token {{IMAGE_N}}.",
	},

	{domain.TaskCVSection, domain.LocaleEN}: {
		framing: "You are a career coach. Rewrite the CV section below to be specific, achievement-oriented, and concise. Use strong verbs and measurable outcomes where the source supports them; never invent facts.",
		format:  "Return only the improved section text. No markdown, no commentary.",
	},
	{domain.TaskCVSection, domain.LocaleVI}: {
		framing: "Bạn là chuyên gia tư vấn nghề nghiệp. Hãy viết lại phần CV dưới đây sao cho cụ thể, hướng đến thành tích và súc tích. Dùng động từ mạnh và kết quả đo lường được khi bản gốc cho phép; tuyệt đối không bịa thông tin.",
		format:  "Chỉ trả về nội dung phần CV đã cải thiện. Không markdown, không bình luận.",
	},

	{domain.TaskCVMatch, domain.LocaleEN}: {
		framing: "You are a technical recruiter. Evaluate how well the CV below matches the job description.",
		format: `Return only JSON matching this shape, with no surrounding text:
{"overallScore": 0-100, "skillScore": 0-100, "experienceScore": 0-100, "educationScore": 0-100, "strengths": ["..."], "gaps": ["..."], "summary": "..."}`,
		rules: "Weigh the overall score as: skills 40%, experience 35%, education 15%, presentation 10%. Score only against requirements stated in the job description.",
	},
	{domain.TaskCVMatch, domain.LocaleVI}: {
		framing: "Bạn là chuyên viên tuyển dụng kỹ thuật. Hãy đánh giá mức độ phù hợp giữa CV dưới đây và mô tả công việc.",
		format: `Chỉ trả về JSON đúng cấu trúc sau, không kèm văn bản nào khác:
{"overallScore": 0-100, "skillScore": 0-100, "experienceScore": 0-100, "educationScore": 0-100, "strengths": ["..."], "gaps": ["..."], "summary": "..."}`,
		rules: "Trọng số điểm tổng: kỹ năng 40%, kinh nghiệm 35%, học vấn 15%, trình bày 10%. Chỉ chấm theo các yêu cầu nêu trong mô tả công việc.",
	},
}

func exemplarHeading(l domain.Locale) string {
	if l == domain.LocaleVI {
		return "## Tài liệu tham khảo"
	}
	return "## Reference material"
}

func noExemplarNote(l domain.Locale) string {
	if l == domain.LocaleVI {
		return "(không có tài liệu tham khảo phù hợp)"
	}
	return "(no relevant reference material)"
}

func inputLabel(l domain.Locale) string {
	if l == domain.LocaleVI {
		return "## Nội dung đầu vào"
	}
	return "## Input"
}

func sectionLabel(l domain.Locale) string {
	if l == domain.LocaleVI {
		return "## Phần CV: "
	}
	return "## CV section: "
}

func cvLabel(l domain.Locale) string {
	if l == domain.LocaleVI {
		return "## CV"
	}
	return "## CV"
}

func jobLabel(l domain.Locale) string {
	if l == domain.LocaleVI {
		return "## Mô tả công việc"
	}
	return "## Job description"
}
