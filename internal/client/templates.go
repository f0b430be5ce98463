package client

import (
	"fmt"
	"strings"
)

// Bilingual notification templates, Arabic primary with English fallback.
// Rendering is deterministic placeholder substitution: `{key}` tokens are
// replaced from the event context; keys missing from the context render as
// empty string so no literal token ever reaches a recipient.

// Template is one bilingual message template.
type Template struct {
	TitleAr string
	TitleEn string
	BodyAr  string
	BodyEn  string
}

var templates = map[string]Template{
	"request.path_assigned": {
		TitleAr: "تم تحويل طلب إلى إدارتكم",
		TitleEn: "A request was routed to your department",
		BodyAr:  "الطلب {request_title} تم تحويله إلى {department_name} للمراجعة.",
		BodyEn:  "Request {request_title} was routed to {department_name} for review.",
	},
	"request.assigned_to_employee": {
		TitleAr: "تم إسناد طلب إليك",
		TitleEn: "A request was assigned to you",
		BodyAr:  "تم إسناد الطلب {request_title} إليك من قبل {actor_name}.",
		BodyEn:  "Request {request_title} was assigned to you by {actor_name}.",
	},
	"request.moved_to_department": {
		TitleAr: "طلب جديد في إدارتكم",
		TitleEn: "A request arrived in your department",
		BodyAr:  "الطلب {request_title} وصل إلى {department_name}.",
		BodyEn:  "Request {request_title} arrived in {department_name}.",
	},
	"request.approved": {
		TitleAr: "تمت الموافقة على طلبك",
		TitleEn: "Your request was approved",
		BodyAr:  "طلبك {request_title} اجتاز مراجعة {department_name}.",
		BodyEn:  "Your request {request_title} cleared review at {department_name}.",
	},
	"request.rejected": {
		TitleAr: "تم رفض طلبك",
		TitleEn: "Your request was rejected",
		BodyAr:  "طلبك {request_title} تم رفضه. السبب: {comments}",
		BodyEn:  "Your request {request_title} was rejected. Reason: {comments}",
	},
	"request.need_more_details": {
		TitleAr: "طلبك يحتاج إلى تفاصيل إضافية",
		TitleEn: "Your request needs more details",
		BodyAr:  "طلبك {request_title} أُعيد إليك لاستكمال التفاصيل: {comments}",
		BodyEn:  "Your request {request_title} was returned for more details: {comments}",
	},
	"request.completed": {
		TitleAr: "تم اعتماد طلبك",
		TitleEn: "Your request was completed",
		BodyAr:  "طلبك {request_title} تم اعتماده وإغلاقه.",
		BodyEn:  "Your request {request_title} was approved and closed.",
	},
	"request.returned": {
		TitleAr: "تمت إعادة طلب إلى إدارتكم",
		TitleEn: "A request was returned to your department",
		BodyAr:  "الطلب {request_title} أُعيد إلى {department_name}.",
		BodyEn:  "Request {request_title} was returned to {department_name}.",
	},
	"sla.dept_a_assign_path": {
		TitleAr: "طلب بانتظار التصنيف",
		TitleEn: "Request awaiting triage",
		BodyAr:  "الطلب {request_title} بانتظار تحديد مسار منذ {days_waiting} يوم (الحد {sla_days} أيام).",
		BodyEn:  "Request {request_title} has awaited a workflow path for {days_waiting} days (limit {sla_days}).",
	},
	"sla.manager_assign_employee": {
		TitleAr: "طلب بانتظار الإسناد",
		TitleEn: "Request awaiting assignment",
		BodyAr:  "الطلب {request_title} بانتظار إسناده لموظف منذ {days_waiting} يوم (الحد {sla_days} أيام).",
		BodyEn:  "Request {request_title} has awaited an assignee for {days_waiting} days (limit {sla_days}).",
	},
	"sla.employee_work_overdue": {
		TitleAr: "طلب متأخر قيد التنفيذ",
		TitleEn: "Assigned request overdue",
		BodyAr:  "الطلب {request_title} قيد التنفيذ منذ {days_waiting} يوم (الحد {sla_days} أيام).",
		BodyEn:  "Request {request_title} has been in progress for {days_waiting} days (limit {sla_days}).",
	},
	"sla.final_validation_overdue": {
		TitleAr: "طلب بانتظار الاعتماد النهائي",
		TitleEn: "Request awaiting final validation",
		BodyAr:  "الطلب {request_title} بانتظار الاعتماد النهائي منذ {days_waiting} يوم (الحد {sla_days} أيام).",
		BodyEn:  "Request {request_title} has awaited final validation for {days_waiting} days (limit {sla_days}).",
	},
}

// RenderedMessage is the bilingual output for one event.
type RenderedMessage struct {
	TitleAr string
	TitleEn string
	BodyAr  string
	BodyEn  string
}

// Render produces the bilingual message for an event type. Unknown event
// types return ok=false and publish raw context only.
func Render(eventType string, context map[string]any) (RenderedMessage, bool) {
	tpl, ok := templates[eventType]
	if !ok {
		return RenderedMessage{}, false
	}
	return RenderedMessage{
		TitleAr: substitute(tpl.TitleAr, context),
		TitleEn: substitute(tpl.TitleEn, context),
		BodyAr:  substitute(tpl.BodyAr, context),
		BodyEn:  substitute(tpl.BodyEn, context),
	}, true
}

// substitute replaces {key} tokens with their context value. Missing keys
// become empty strings.
func substitute(tpl string, context map[string]any) string {
	var b strings.Builder
	b.Grow(len(tpl))

	for {
		open := strings.IndexByte(tpl, '{')
		if open < 0 {
			b.WriteString(tpl)
			return b.String()
		}
		closing := strings.IndexByte(tpl[open:], '}')
		if closing < 0 {
			b.WriteString(tpl)
			return b.String()
		}
		closing += open

		b.WriteString(tpl[:open])
		key := tpl[open+1 : closing]
		if v, ok := context[key]; ok {
			b.WriteString(stringify(v))
		}
		tpl = tpl[closing+1:]
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
