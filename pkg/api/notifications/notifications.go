package notifications

import "github.com/ShareMountProject/sharemount-core/pkg/api/models"

func Running(ns chan<- models.Notification) {
	ns <- models.Notification{
		Method: models.NotificationRunning,
	}
}

func NetworkOnline(ns chan<- models.Notification) {
	ns <- models.Notification{
		Method: models.NotificationNetworkOnline,
	}
}

func NetworkOffline(ns chan<- models.Notification) {
	ns <- models.Notification{
		Method: models.NotificationNetworkOffline,
	}
}

func InternetRestored(ns chan<- models.Notification) {
	ns <- models.Notification{
		Method: models.NotificationInternetRestored,
	}
}

func InternetLost(ns chan<- models.Notification) {
	ns <- models.Notification{
		Method: models.NotificationInternetLost,
	}
}

func NetworkChanged(ns chan<- models.Notification, payload models.NetworkChangedParams) {
	ns <- models.Notification{
		Method: models.NotificationNetworkChanged,
		Params: payload,
	}
}

func VPNConnected(ns chan<- models.Notification, payload models.VPNParams) {
	ns <- models.Notification{
		Method: models.NotificationVPNConnected,
		Params: payload,
	}
}

func VPNDisconnected(ns chan<- models.Notification, payload models.VPNParams) {
	ns <- models.Notification{
		Method: models.NotificationVPNDisconnected,
		Params: payload,
	}
}

func MountAdded(ns chan<- models.Notification, payload models.MountedShareResponse) {
	ns <- models.Notification{
		Method: models.NotificationMountAdded,
		Params: payload,
	}
}

func MountRemoved(ns chan<- models.Notification, label string) {
	ns <- models.Notification{
		Method: models.NotificationMountRemoved,
		Params: label,
	}
}

func ConflictsResolved(ns chan<- models.Notification, payload models.ConflictsResolvedParams) {
	ns <- models.Notification{
		Method: models.NotificationConflictsResolved,
		Params: payload,
	}
}

func AutoMountCompleted(ns chan<- models.Notification, payload models.AutoMountCompletedParams) {
	ns <- models.Notification{
		Method: models.NotificationAutoMountCompleted,
		Params: payload,
	}
}

func SharesDisconnected(ns chan<- models.Notification, payload models.SharesDisconnectedParams) {
	ns <- models.Notification{
		Method: models.NotificationSharesDisconnected,
		Params: payload,
	}
}

func ShareReconnected(ns chan<- models.Notification, payload models.ShareReconnectedParams) {
	ns <- models.Notification{
		Method: models.NotificationShareReconnected,
		Params: payload,
	}
}

func ReconnectFailed(ns chan<- models.Notification, payload models.ReconnectFailedParams) {
	ns <- models.Notification{
		Method: models.NotificationReconnectFailed,
		Params: payload,
	}
}
