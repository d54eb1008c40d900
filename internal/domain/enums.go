package domain

type TaskType string

const (
	TaskTypeReview      TaskType = "review"
	TaskTypeApproval    TaskType = "approval"
	TaskTypeInformation TaskType = "information"
	TaskTypeAction      TaskType = "action"
)

var TaskTypes = []TaskType{TaskTypeReview, TaskTypeApproval, TaskTypeInformation, TaskTypeAction}

func (t TaskType) Valid() bool { return contains(TaskTypes, t) }

type TaskStatus string

const (
	StatusDraft         TaskStatus = "draft"
	StatusAssigned      TaskStatus = "assigned"
	StatusInProgress    TaskStatus = "in_progress"
	StatusPendingReview TaskStatus = "pending_review"
	StatusApproved      TaskStatus = "approved"
	StatusRejected      TaskStatus = "rejected"
	StatusCompleted     TaskStatus = "completed"
	StatusCancelled     TaskStatus = "cancelled"
)

var TaskStatuses = []TaskStatus{
	StatusDraft, StatusAssigned, StatusInProgress, StatusPendingReview,
	StatusApproved, StatusRejected, StatusCompleted, StatusCancelled,
}

func (s TaskStatus) Valid() bool { return contains(TaskStatuses, s) }

// Pending reports whether the task still needs work from its assignee.
func (s TaskStatus) Pending() bool { return s == StatusAssigned || s == StatusInProgress }

// Closed reports whether the task reached a terminal state.
func (s TaskStatus) Closed() bool { return s == StatusCompleted || s == StatusCancelled }

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

var TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p TaskPriority) Valid() bool { return contains(TaskPriorities, p) }

type DocumentCategory string

const (
	CategorySiteSurvey             DocumentCategory = "site_survey"
	CategoryEnvironmental          DocumentCategory = "environmental"
	CategorySafetyInspection       DocumentCategory = "safety_inspection"
	CategoryMaintenanceReport      DocumentCategory = "maintenance_report"
	CategoryComplianceDocument     DocumentCategory = "compliance_document"
	CategoryTechnicalSpecification DocumentCategory = "technical_specification"
	CategoryInstallationGuide      DocumentCategory = "installation_guide"
	CategoryPermit                 DocumentCategory = "permit"
	CategoryContract               DocumentCategory = "contract"
	CategoryOther                  DocumentCategory = "other"
)

var DocumentCategories = []DocumentCategory{
	CategorySiteSurvey, CategoryEnvironmental, CategorySafetyInspection, CategoryMaintenanceReport,
	CategoryComplianceDocument, CategoryTechnicalSpecification, CategoryInstallationGuide,
	CategoryPermit, CategoryContract, CategoryOther,
}

func (c DocumentCategory) Valid() bool { return contains(DocumentCategories, c) }

type UserRole string

const (
	RoleFieldEngineer     UserRole = "field_engineer"
	RoleSiteManager       UserRole = "site_manager"
	RoleComplianceOfficer UserRole = "compliance_officer"
	RoleProjectManager    UserRole = "project_manager"
	RoleTechnicalLead     UserRole = "technical_lead"
	RoleOperationsManager UserRole = "operations_manager"
)

var UserRoles = []UserRole{
	RoleFieldEngineer, RoleSiteManager, RoleComplianceOfficer,
	RoleProjectManager, RoleTechnicalLead, RoleOperationsManager,
}

func (r UserRole) Valid() bool { return contains(UserRoles, r) }

type Department string

const (
	DeptFieldOperations   Department = "field_operations"
	DeptSiteManagement    Department = "site_management"
	DeptCompliance        Department = "compliance"
	DeptProjectManagement Department = "project_management"
	DeptEngineering       Department = "engineering"
	DeptOperations        Department = "operations"
)

var Departments = []Department{
	DeptFieldOperations, DeptSiteManagement, DeptCompliance,
	DeptProjectManagement, DeptEngineering, DeptOperations,
}

func (d Department) Valid() bool { return contains(Departments, d) }

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
